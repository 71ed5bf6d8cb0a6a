package events

import (
	"strings"
	"testing"

	"imc-manager/internal/models"
)

func TestFormatEvent(t *testing.T) {
	line := FormatEvent(models.EventDto{App: "textProc", Status: "ERROR", Message: "chunking failed"})
	if !strings.HasPrefix(line, "! ") {
		t.Errorf("error event not marked: %q", line)
	}
	if !strings.Contains(line, "textProc") || !strings.Contains(line, "chunking failed") {
		t.Errorf("line = %q", line)
	}

	line = FormatEvent(models.EventDto{App: "hdfsWatcher", Status: "OK", Message: "found doc1.pdf"})
	if strings.HasPrefix(line, "! ") {
		t.Errorf("ok event marked as error: %q", line)
	}
}
