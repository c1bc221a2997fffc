package reduce_test

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/webnav-ai/webnav/internal/reduce"
)

func TestOptimize_Idempotent(t *testing.T) {
	in := `- heading "Example Domain" [ref=e1]
- text "This domain is for use in examples."
- link "More information..." [ref=e2]`

	once := reduce.Optimize(in, reduce.Options{})
	twice := reduce.Optimize(once, reduce.Options{})

	if once != twice {
		t.Errorf("Optimize is not idempotent:\nonce:\n%s\ntwice:\n%s", once, twice)
	}
}

func TestOptimize_PreservesReferences(t *testing.T) {
	in := `- button "Go" [ref=e1]
- link "Home" [ref=e2]`

	out := reduce.Optimize(in, reduce.Options{})

	for _, ref := range []string{"e1", "e2"} {
		if !strings.Contains(out, "[ref="+ref+"]") {
			t.Errorf("expected %s preserved, got:\n%s", ref, out)
		}
	}
}

func TestStripChrome_RescuesInteractiveRefs(t *testing.T) {
	in := `- navigation "site nav"
  - link "Sign in" [ref=e1]
- main "content"
  - button "Buy" [ref=e2]`

	out := reduce.Optimize(in, reduce.Options{})

	if !strings.Contains(out, "[ref=e1]") {
		t.Errorf("expected e1 rescued into chrome-actions group, got:\n%s", out)
	}
	if !strings.Contains(out, "chrome-actions") {
		t.Errorf("expected chrome-actions summary group, got:\n%s", out)
	}
}

func TestStripChrome_OneRefPerRescuedLine(t *testing.T) {
	in := `- navigation "site nav"
  - link "Sign in" [ref=e1]
  - link "Sign up" [ref=e2]
  - button "Menu" [ref=e3]
- main "content"
  - heading "Welcome"`

	out := reduce.Optimize(in, reduce.Options{})

	refLine := regexp.MustCompile(`\[ref=e\d+\]`)
	for _, rawLine := range strings.Split(out, "\n") {
		if n := len(refLine.FindAllString(rawLine, -1)); n > 1 {
			t.Errorf("line carries %d ref tags, want at most 1: %q", n, rawLine)
		}
	}
	for _, ref := range []string{"e1", "e2", "e3"} {
		if !strings.Contains(out, "[ref="+ref+"]") {
			t.Errorf("expected %s preserved on its own line, got:\n%s", ref, out)
		}
	}
}

func TestSmartTruncate(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		n := strconv.Itoa(i)
		b.WriteString(`- listitem "item` + n + `" [ref=e` + n + "]\n")
	}

	out := reduce.Optimize(strings.TrimRight(b.String(), "\n"), reduce.Options{})

	re := regexp.MustCompile(`- text "\.\.\. and 15 more listitems`)
	if !re.MatchString(out) {
		t.Errorf("expected smart-truncate summary line, got:\n%s", out)
	}

	count := strings.Count(out, "listitem \"item")
	if count != 5 {
		t.Errorf("expected 5 kept listitems, got %d:\n%s", count, out)
	}
}

func TestSemanticCompress_FlightItinerary(t *testing.T) {
	in := `- link "From 320 US dollars round trip. United. Leaves San Francisco International at 7:15 AM. Arrives John F. Kennedy International at 3:40 PM. Total duration 5 hr 25 min. Nonstop" [ref=e1]`

	out := reduce.Optimize(in, reduce.Options{})

	want := "United SFO 7:15AM→JFK 3:40PM 5h25 nonstop $320"
	if !strings.Contains(out, want) {
		t.Errorf("expected compressed itinerary %q, got:\n%s", want, out)
	}
}

func TestBaseline_DropsUnnamedStructuralSubtrees(t *testing.T) {
	in := `- generic ""
  - generic ""
- button "OK" [ref=e1]`

	out := reduce.Baseline(in)

	if strings.Contains(out, `generic ""`) {
		t.Errorf("expected unnamed structural subtree dropped, got:\n%s", out)
	}
	if !strings.Contains(out, `button "OK" [ref=e1]`) {
		t.Errorf("expected button line kept, got:\n%s", out)
	}
}
