package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ziadkadry99/flowchat/internal/surface"
	"github.com/ziadkadry99/flowchat/internal/theme"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

type recorder struct {
	events []string
}

func (r *recorder) Start(d string) { r.events = append(r.events, "start:"+d) }
func (r *recorder) Finish()        { r.events = append(r.events, "finish") }

func TestFollowBusyFlag(t *testing.T) {
	state := surface.New(transcript.NewStore(), theme.Dark)
	rec := &recorder{}
	stop := Follow(state, rec, "Working")

	state.SetQuery("ignored")
	state.TryAcquireBusy()
	state.SetQuery("still busy")
	state.ReleaseBusy()
	stop()
	state.TryAcquireBusy()

	want := []string{"start:Working", "finish"}
	if strings.Join(rec.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{w: &buf}
	r.Start("Generating diagram")
	r.Finish()

	out := buf.String()
	if !strings.HasPrefix(out, "Generating diagram\nDone in ") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestTerminalReporterStartFinish(t *testing.T) {
	var buf bytes.Buffer
	r := &TerminalReporter{w: &buf}
	r.Finish()
	r.Start("Working")
	r.Start("Working")
	r.Finish()
	r.Finish()
	if r.bar != nil {
		t.Error("bar should be cleared after Finish")
	}
}
