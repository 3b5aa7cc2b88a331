package bomb

import (
	"fmt"
	"math/rand"
	"strings"
)

// Widget is one of the five edgework attributes generated per session.
// Widgets are immutable once generated.
type Widget interface {
	widget()
}

// Battery is a battery holder with one or two cells.
type Battery struct {
	Count int
}

// Indicator is a 3-letter indicator light, lit or unlit.
type Indicator struct {
	Code string
	Lit  bool
}

// PortPlate holds a possibly empty subset of one port group.
type PortPlate struct {
	Ports []string
}

func (Battery) widget()   {}
func (Indicator) widget() {}
func (PortPlate) widget() {}

func (i Indicator) String() string {
	if i.Lit {
		return "*" + i.Code
	}
	return i.Code
}

func (p PortPlate) String() string {
	if len(p.Ports) == 0 {
		return "[Empty]"
	}
	return "[" + strings.Join(p.Ports, ", ") + "]"
}

// indicatorCodes is the fixed 11-code set indicators are drawn from, without
// replacement within one session.
var indicatorCodes = []string{"SND", "CLR", "CAR", "IND", "FRQ", "SIG", "NSA", "MSA", "TRN", "BOB", "FRK"}

// portGroups are the two fixed port groups a plate draws its subset from.
var portGroups = [2][]string{
	{"Serial", "Parallel"},
	{"DVI", "PS2", "RJ45", "StereoRCA"},
}

const (
	widgetCount = 5

	// serialAlphabet excludes O and Y; the last ten characters are the digits.
	serialAlphabet = "ABCDEFGHIJKLMNPQRSTUVWXZ0123456789"
	serialLetters  = "ABCDEFGHIJKLMNPQRSTUVWXZ"
)

// newBattery generates a battery holder with 1 or 2 cells.
func newBattery(rng *rand.Rand) Battery {
	return Battery{Count: 1 + rng.Intn(2)}
}

// newIndicator generates an indicator whose code is unused among existing.
// Panics if all 11 codes are taken; with 5 widgets per bomb that state is
// unreachable and indicates engine corruption.
func newIndicator(rng *rand.Rand, existing []Widget) Indicator {
	used := make(map[string]bool)
	for _, w := range existing {
		if ind, ok := w.(Indicator); ok {
			used[ind.Code] = true
		}
	}

	available := make([]string, 0, len(indicatorCodes))
	for _, code := range indicatorCodes {
		if !used[code] {
			available = append(available, code)
		}
	}
	if len(available) == 0 {
		panic(fmt.Sprintf("all %d indicator codes used even though %d is the widget limit", len(indicatorCodes), widgetCount))
	}

	return Indicator{
		Code: available[rng.Intn(len(available))],
		Lit:  rng.Float64() < 0.6,
	}
}

// newPortPlate picks one port group and includes each of its ports with
// probability 0.5. The plate may end up empty.
func newPortPlate(rng *rand.Rand) PortPlate {
	group := portGroups[rng.Intn(len(portGroups))]
	var ports []string
	for _, port := range group {
		if rng.Intn(2) == 0 {
			ports = append(ports, port)
		}
	}
	return PortPlate{Ports: ports}
}

// newEdgework generates the fixed set of 5 widgets, each variant chosen
// uniformly.
func newEdgework(rng *rand.Rand) []Widget {
	widgets := make([]Widget, 0, widgetCount)
	for i := 0; i < widgetCount; i++ {
		switch rng.Intn(3) {
		case 0:
			widgets = append(widgets, newBattery(rng))
		case 1:
			widgets = append(widgets, newIndicator(rng, widgets))
		default:
			widgets = append(widgets, newPortPlate(rng))
		}
	}
	return widgets
}

// newSerial generates a 6-character serial number: two alphanumerics, a
// digit, two letters and a final digit, all drawn from serialAlphabet.
func newSerial(rng *rand.Rand) string {
	anyChar := func() byte {
		return serialAlphabet[rng.Intn(len(serialAlphabet))]
	}
	letter := func() byte {
		return serialLetters[rng.Intn(len(serialLetters))]
	}
	digit := func() byte {
		return byte('0' + rng.Intn(10))
	}

	return string([]byte{anyChar(), anyChar(), digit(), letter(), letter(), digit()})
}

// formatEdgework renders the edgework summary line: battery tallies,
// indicators, port plates and serial, with empty sections omitted.
func formatEdgework(widgets []Widget, serial string) string {
	var batteries, holders int
	var indicators, plates []string

	for _, w := range widgets {
		switch w := w.(type) {
		case Battery:
			batteries += w.Count
			holders++
		case Indicator:
			indicators = append(indicators, w.String())
		case PortPlate:
			plates = append(plates, w.String())
		}
	}

	sections := []string{
		fmt.Sprintf("%dB %dH", batteries, holders),
		strings.Join(indicators, " "),
		strings.Join(plates, " "),
		serial,
	}

	nonEmpty := sections[:0]
	for _, s := range sections {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, " // ")
}
