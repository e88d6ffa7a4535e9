package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"domainbot/internal/dispatch"
	"domainbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingHandler struct {
	inputs []dispatch.Input
	err    error
}

func (h *recordingHandler) Handle(ctx context.Context, in dispatch.Input) (*dispatch.Outcome, error) {
	h.inputs = append(h.inputs, in)
	if h.err != nil {
		return nil, h.err
	}
	return &dispatch.Outcome{
		Domain:       "study",
		Capabilities: []string{"browser", "search"},
		Directive: &domain.UIDirective{
			Template: "ExplanationView",
			Props:    map[string]any{"userMessage": "hi", "timestamp": ""},
		},
	}, nil
}

func TestCLI_HandlesLinesAndPinsDomain(t *testing.T) {
	h := &recordingHandler{}
	var out strings.Builder
	cli := NewCLI(CLIConfig{
		Handler: h,
		Logger:  testLogger(),
		In:      strings.NewReader("explain gravity\n\n/domain shopping\ncompare phones\n/domain\nhello\n/quit\nnever sent\n"),
		Out:     &out,
	})

	if err := cli.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(h.inputs) != 3 {
		t.Fatalf("expected 3 requests, got %d: %+v", len(h.inputs), h.inputs)
	}
	if h.inputs[0].Domain != "" || h.inputs[1].Domain != "shopping" || h.inputs[2].Domain != "" {
		t.Errorf("unexpected domains: %+v", h.inputs)
	}
	if !strings.Contains(out.String(), "template:     ExplanationView") {
		t.Errorf("expected rendered template in output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "pinned to shopping") {
		t.Errorf("expected pin confirmation in output:\n%s", out.String())
	}
}

func TestCLI_ReportsErrors(t *testing.T) {
	h := &recordingHandler{err: errors.New("unknown domain")}
	var out strings.Builder
	cli := NewCLI(CLIConfig{Handler: h, Logger: testLogger(), In: strings.NewReader("x\n"), Out: &out})

	if err := cli.Start(context.Background()); err != nil {
		t.Fatalf("EOF should end cleanly: %v", err)
	}
	if !strings.Contains(out.String(), "error: unknown domain") {
		t.Errorf("expected error line, got:\n%s", out.String())
	}
}

func TestRender_FollowUp(t *testing.T) {
	var out strings.Builder
	err := Render(&out, &dispatch.Outcome{Domain: "shopping", FollowUp: "Which product?"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "follow-up:    Which product?") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRender_JSON(t *testing.T) {
	h := &recordingHandler{}
	o, _ := h.Handle(context.Background(), dispatch.Input{})
	o.SystemPrompt = "secret prompt"

	var out strings.Builder
	if err := Render(&out, o, true); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out.String()), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["domain"] != "study" {
		t.Errorf("unexpected domain: %v", decoded["domain"])
	}
	if strings.Contains(out.String(), "secret prompt") {
		t.Error("system prompt must not be rendered")
	}
}
