package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLogger_Levels(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	tests := []struct {
		name      string
		logger    Logger
		wantInfo  bool
		wantDebug bool
	}{
		{"quiet", Logger{}, false, false},
		{"verbose", Logger{Verbose: true}, true, false},
		{"debug", Logger{Debug: true}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			l := tt.logger
			l.Out, l.Err = &out, &errOut

			l.Infof("opened %d", 1)
			l.Debugf("loaded %s", "file")
			l.Warnf("slow")
			l.Errorf("failed")

			if got := strings.Contains(out.String(), "[info] opened 1"); got != tt.wantInfo {
				t.Errorf("info shown = %v, want %v: %q", got, tt.wantInfo, out.String())
			}
			if got := strings.Contains(out.String(), "[debug] loaded file"); got != tt.wantDebug {
				t.Errorf("debug shown = %v, want %v: %q", got, tt.wantDebug, out.String())
			}
			if !strings.Contains(errOut.String(), "[warn] slow") || !strings.Contains(errOut.String(), "[error] failed") {
				t.Errorf("warnings and errors must always be shown: %q", errOut.String())
			}
		})
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Warnf("nothing")
	l.Errorf("nothing")
}
