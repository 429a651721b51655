package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/socialnet/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "feed unavailable", err: newError(KindFeedUnavailable, "", "", 0, errors.New("open x.csv: no such file")), wantCode: "FEED001"},
		{name: "feed too large", err: newError(KindFeedUnavailable, "", "", 0, fmt.Errorf("%w: 20 bytes", ErrFeedTooLarge)), wantCode: "FEED002"},
		{name: "csv parse error", err: newError(KindFeedUnavailable, "", "", 3, &csv.ParseError{Line: 3, Err: csv.ErrQuote}), wantCode: "FEED003"},
		{name: "missing field", err: newError(KindMissingField, "EMAIL", "", 4, nil), wantCode: "VAL001"},
		{name: "unexpected column", err: newError(KindUnexpectedColumn, "AGE", "", 1, nil), wantCode: "VAL002"},
		{name: "validation", err: newError(KindValidation, "EMAIL", "bad", 2, nil), wantCode: "VAL003"},
		{name: "duplicate key", err: storeError(store.AttrUserID, "ada", store.ErrDuplicateKey), wantCode: "DB001"},
		{name: "integrity", err: newError(KindStorageIntegrity, "", "", 0, store.ErrIntegrity), wantCode: "DB002"},
		{name: "not found", err: storeError(store.AttrUserID, "ghost", store.ErrNotFound), wantCode: "DB003"},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), wantCode: "DB004"},
		{name: "sqlite busy", err: errors.New("database is locked (5) (SQLITE_BUSY)"), wantCode: "DB005"},
		{name: "deadline wrapped in integrity", err: newError(KindStorageIntegrity, "", "", 0, context.DeadlineExceeded), wantCode: "DB006"},
		{name: "cancelled", err: fmt.Errorf("load: %w", context.Canceled), wantCode: "DB007"},
		{name: "raw foreign key text", err: errors.New("FOREIGN KEY constraint failed"), wantCode: "DB002"},
		{name: "unknown error", err: errors.New("something strange happened"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError() returned incomplete message: %+v", got)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(newError(KindValidation, "EMAIL", "bad", 2, nil))
	want := "A field has an invalid value (Code: VAL003). Correct the reported value and load again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) should be false")
	}
	if !IsUserFacing(ErrNotFound) {
		t.Error("IsUserFacing(ErrNotFound) should be true")
	}
	if IsUserFacing(errors.New("mystery")) {
		t.Error("IsUserFacing(mystery) should be false")
	}
}

func TestError_Message(t *testing.T) {
	err := newError(KindValidation, "EMAIL", "eve@uw", 3, nil)
	msg := err.Error()
	for _, want := range []string{"validation failure", "line 3", `"EMAIL"`, `"eve@uw"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %s", msg, want)
		}
	}

	if !errors.Is(err, ErrValidation) {
		t.Error("errors.Is(err, ErrValidation) = false")
	}
	if KindOf(fmt.Errorf("wrapped: %w", err)) != KindValidation {
		t.Error("KindOf should see through wrapping")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("KindOf(plain) should be KindUnknown")
	}

	wrapped := newError(KindStorageIntegrity, "", "", 0, store.ErrIntegrity)
	if !errors.Is(wrapped, ErrStorageIntegrity) || !errors.Is(wrapped, store.ErrIntegrity) {
		t.Error("Error should unwrap to both its kind and its cause")
	}
}
