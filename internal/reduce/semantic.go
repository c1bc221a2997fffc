package reduce

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	dollarPhraseRe  = regexp.MustCompile(`(?:From )?(\d+(?:\.\d+)?) US dollars`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)

	itineraryRe = regexp.MustCompile(
		`(?i)^(?:From\s+)?(.*?)\s*\$?(\d+(?:\.\d+)?)\.?\s*(?:US dollars\s*)?` +
			`(?:round trip\.?|nonstop\.?|1-stop\.?|2-stop\.?)?\s*` +
			`(?:([^.]+?)\.\s*)?` +
			`Leaves (.+?) at (\d{1,2}:\d{2}\s*[AP]M)\.\s*` +
			`Arrives (.+?) at (\d{1,2}:\d{2}\s*[AP]M)\.\s*` +
			`Total duration (\d+)\s*hr\s*(\d+)?\s*min\.?\s*(Nonstop|1 stop|2 stops)?`)

	stopWordReplacements = []struct {
		from *regexp.Regexp
		to   string
	}{
		{regexp.MustCompile(`Nonstop`), "nonstop"},
		{regexp.MustCompile(`Round trip`), "RT"},
		{regexp.MustCompile(`one stop`), "1-stop"},
		{regexp.MustCompile(`two stops`), "2-stop"},
	}

	airportCodes = map[string]string{
		"san francisco international":  "SFO",
		"john f. kennedy international": "JFK",
		"los angeles international":    "LAX",
		"o'hare international":         "ORD",
		"heathrow":                     "LHR",
		"charles de gaulle":            "CDG",
	}
)

func airportCode(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if code, ok := airportCodes[key]; ok {
		return code
	}
	letters := regexp.MustCompile(`[A-Za-z]`).FindAllString(name, -1)
	if len(letters) >= 3 {
		return strings.ToUpper(strings.Join(letters[:3], ""))
	}
	return strings.ToUpper(name)
}

// semanticCompress is pipeline step 6: rewrites element names only, never
// roles or suffixes.
func semanticCompress(outlineText string, _ Options) string {
	lines := splitLines(outlineText)
	for i, l := range lines {
		if !l.isElem || l.name == "" {
			continue
		}
		lines[i].name = compressName(l.name)
	}
	return joinLines(lines)
}

func compressName(name string) string {
	if m := itineraryRe.FindStringSubmatch(name); m != nil {
		airline := strings.TrimSpace(m[1])
		if airline == "" {
			airline = strings.TrimSpace(m[3])
		}
		price := m[2]
		dep := airportCode(m[4])
		depTime := strings.ReplaceAll(m[5], " ", "")
		arr := airportCode(m[6])
		arrTime := strings.ReplaceAll(m[7], " ", "")
		hours := m[8]
		mins := m[9]
		if mins == "" {
			mins = "0"
		}
		stops := "nonstop"
		if m[10] != "" {
			stops = strings.ToLower(m[10])
			if stops == "1 stop" {
				stops = "1-stop"
			} else if stops == "2 stops" {
				stops = "2-stop"
			}
		}
		return fmt.Sprintf("%s %s %s→%s %s %sh%s %s $%s",
			airline, dep, depTime, arr, arrTime, hours, mins, stops, price)
	}

	name = dollarPhraseRe.ReplaceAllString(name, "$$$1")
	for _, r := range stopWordReplacements {
		name = r.from.ReplaceAllString(name, r.to)
	}
	name = whitespaceRunRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
