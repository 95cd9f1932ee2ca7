package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_WrapAndCategory(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := ErrExecution(CodeConnectFailed, "database unavailable").WithCause(cause)

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if GetCategory(err) != ErrCatExecution {
		t.Fatalf("unexpected category: %s", GetCategory(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("execution errors should be retryable")
	}
	if IsRetryable(ErrSafety(CodeBlockedKeyword, "blocked")) {
		t.Fatalf("safety violations must never be retryable")
	}
}

func TestUserMessage_NeverLeaksDriverText(t *testing.T) {
	cause := fmt.Errorf("Error 1064 (42000): You have an error in your SQL syntax near 'FROM'")
	err := ErrExecution(CodeQueryFailed, "query failed").WithCause(cause)

	msg := UserMessage(err)
	if msg != "query failed" {
		t.Fatalf("expected generic message, got %q", msg)
	}

	safety := ErrSafety(CodeBlockedKeyword, "Only read-only SQL queries are allowed.")
	if UserMessage(safety) != "Only read-only SQL queries are allowed." {
		t.Fatalf("safety messages must surface verbatim")
	}

	if UserMessage(fmt.Errorf("plain")) != "internal error" {
		t.Fatalf("unknown errors collapse to internal error")
	}
}

func TestStatusPayload_Variants(t *testing.T) {
	ok := Success("done")
	if !ok.IsSuccess() || ok.IsError() || ok.IsNeedsRetry() {
		t.Fatalf("success variant misclassified")
	}

	retry := NeedsRetry("SQL result missing or failed.", "")
	if !retry.IsNeedsRetry() {
		t.Fatalf("retry variant misclassified")
	}
	if retry.Refinement == "" {
		t.Fatalf("NeedsRetry must always carry a non-empty refinement")
	}

	errStatus := ErrorStatus("boom")
	if !errStatus.IsError() {
		t.Fatalf("error variant misclassified")
	}
}

func TestStage_Transitions(t *testing.T) {
	order := []Stage{StageInit, StageSQL, StageChart, StageInterpret, StageOutput, StageDone}
	for i := 0; i < len(order)-1; i++ {
		if NextStage(order[i]) != order[i+1] {
			t.Fatalf("NextStage(%s) = %s, want %s", order[i], NextStage(order[i]), order[i+1])
		}
	}
	if NextStage(StageDone) != "" || NextStage(StageFailed) != "" {
		t.Fatalf("terminal stages have no successor")
	}
	if !StageDone.Terminal() || !StageFailed.Terminal() || StageSQL.Terminal() {
		t.Fatalf("terminal classification wrong")
	}
	if _, err := ParseStage("bogus"); err == nil {
		t.Fatalf("expected error for invalid stage")
	}
}
