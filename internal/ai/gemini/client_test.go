package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const extractionModel = "gemini-2.5-flash"

// scriptedChats hands out one chat per Create call, each answering with the
// next scripted reply for the model.
type scriptedChats struct {
	mu       sync.Mutex
	replies  map[string][]scriptedReply
	sessions []*scriptedSession
}

type scriptedReply struct {
	resp *genai.GenerateContentResponse
	err  error
}

type scriptedSession struct {
	model  string
	config *genai.GenerateContentConfig
	reply  scriptedReply

	mu   sync.Mutex
	sent []string
}

func (s *scriptedSession) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, part := range parts {
		s.sent = append(s.sent, part.Text)
	}
	return s.reply.resp, s.reply.err
}

func newScriptedChats() *scriptedChats {
	return &scriptedChats{replies: make(map[string][]scriptedReply)}
}

func (c *scriptedChats) answer(text string) {
	c.push(candidateReply(text), nil)
}

func (c *scriptedChats) fail(err error) {
	c.push(nil, err)
}

func (c *scriptedChats) push(resp *genai.GenerateContentResponse, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[extractionModel] = append(c.replies[extractionModel], scriptedReply{resp: resp, err: err})
}

func (c *scriptedChats) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.replies[model]
	if len(pending) == 0 {
		return nil, errors.New("no scripted reply left for " + model)
	}
	c.replies[model] = pending[1:]
	session := &scriptedSession{model: model, config: config, reply: pending[0]}
	c.sessions = append(c.sessions, session)
	return session, nil
}

func candidateReply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGenerator(chats *scriptedChats, retries int) *Generator {
	return &Generator{chats: chats, model: extractionModel, maxRetries: retries, logger: zap.NewNop()}
}

// noSleep records requested waits instead of sleeping.
func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	original := sleep
	sleep = func(d time.Duration) { waits = append(waits, d) }
	t.Cleanup(func() { sleep = original })
	return &waits
}

var (
	serverFailure = genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	unavailable   = genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
)

const (
	extractionPrompt = "Return the candidate as a JSON object."
	resumeText       = "Jane Doe\nSenior Go developer\njane@example.com"
	candidateJSON    = `{"full_name":"Jane Doe","email":"jane@example.com"}`
)

func TestGeneratorExtractsCandidateAfterServerFailure(t *testing.T) {
	waits := noSleep(t)

	chats := newScriptedChats()
	chats.fail(serverFailure)
	chats.answer(candidateJSON)

	got, err := newTestGenerator(chats, 2).GenerateContent(context.Background(), extractionPrompt, resumeText)
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if got != candidateJSON {
		t.Fatalf("reply = %q, want %q", got, candidateJSON)
	}
	if len(*waits) != 1 {
		t.Fatalf("expected one backoff wait, got %v", *waits)
	}
	if len(chats.sessions) != 2 {
		t.Fatalf("expected a fresh chat per attempt, got %d", len(chats.sessions))
	}

	for i, session := range chats.sessions {
		if session.config == nil || session.config.SystemInstruction == nil {
			t.Fatalf("attempt %d: extraction prompt not sent as system instruction", i+1)
		}
		if got := session.config.SystemInstruction.Parts[0].Text; got != extractionPrompt {
			t.Fatalf("attempt %d: system instruction = %q", i+1, got)
		}
		if len(session.sent) != 1 || session.sent[0] != resumeText {
			t.Fatalf("attempt %d: resume not sent verbatim: %q", i+1, session.sent)
		}
	}
}

func TestGeneratorGivesUpOnResumeAfterRetries(t *testing.T) {
	noSleep(t)

	chats := newScriptedChats()
	chats.fail(serverFailure)
	chats.fail(unavailable)

	_, err := newTestGenerator(chats, 2).GenerateContent(context.Background(), extractionPrompt, resumeText)
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected the last api error, got %v", err)
	}
	if len(chats.sessions) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(chats.sessions))
	}
}

func TestGeneratorQuotaHandling(t *testing.T) {
	tests := []struct {
		name      string
		quota     genai.APIError
		wantWaits []time.Duration
		wantErr   bool
	}{
		{
			name: "retry delay within limit is honoured",
			quota: genai.APIError{
				Code:    http.StatusTooManyRequests,
				Status:  "RESOURCE_EXHAUSTED",
				Details: []map[string]any{{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "7s"}},
			},
			wantWaits: []time.Duration{8 * time.Second},
		},
		{
			name: "long delay in message fails the resume",
			quota: genai.APIError{
				Code:    http.StatusTooManyRequests,
				Status:  "RESOURCE_EXHAUSTED",
				Message: "quota exhausted, retry after 60 seconds",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waits := noSleep(t)

			chats := newScriptedChats()
			chats.fail(tt.quota)
			chats.answer(candidateJSON)

			got, err := newTestGenerator(chats, 3).GenerateContent(context.Background(), extractionPrompt, resumeText)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected quota error")
				}
				if len(chats.sessions) != 1 {
					t.Fatalf("expected a single attempt, got %d", len(chats.sessions))
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateContent: %v", err)
			}
			if got != candidateJSON {
				t.Fatalf("reply = %q", got)
			}
			if len(*waits) != len(tt.wantWaits) || (*waits)[0] != tt.wantWaits[0] {
				t.Fatalf("waits = %v, want %v", *waits, tt.wantWaits)
			}
		})
	}
}

func TestGeneratorWithoutPromptSetsNoInstruction(t *testing.T) {
	chats := newScriptedChats()
	chats.answer(candidateJSON)

	if _, err := newTestGenerator(chats, 1).GenerateContent(context.Background(), "", resumeText); err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if chats.sessions[0].config.SystemInstruction != nil {
		t.Fatal("empty prompt must not set a system instruction")
	}
}

func TestGeneratorSurfacesRejectedResume(t *testing.T) {
	chats := newScriptedChats()
	chats.fail(genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	_, err := newTestGenerator(chats, 3).GenerateContent(context.Background(), extractionPrompt, resumeText)
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		t.Fatalf("expected the api error to surface, got %v", err)
	}
	if len(chats.sessions) != 1 {
		t.Fatalf("client errors must not be retried, got %d attempts", len(chats.sessions))
	}
}

func TestGeneratorRejectsBlankResume(t *testing.T) {
	g := newTestGenerator(newScriptedChats(), 1)
	if _, err := g.GenerateContent(context.Background(), extractionPrompt, " \n\t"); err == nil {
		t.Fatal("expected error for blank resume text")
	}

	var missing *Generator
	if _, err := missing.GenerateContent(context.Background(), extractionPrompt, resumeText); err == nil {
		t.Fatal("expected error for nil generator")
	}
}
