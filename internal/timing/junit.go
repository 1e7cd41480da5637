package timing

import (
	"bytes"
	"encoding/xml"
	"os"
	"strconv"
	"strings"

	"github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// JUnitProvider serves historical durations read from a JUnit XML report.
// A test that appears more than once (e.g. one entry per device) gets the mean duration.
type JUnitProvider struct {
	durations map[string]float64
}

// LoadJUnit reads a JUnit report with either <testsuites> or a single <testsuite> as root
func LoadJUnit(path string) (*JUnitProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading timing report %s", path)
	}
	return ParseJUnit(data)
}

// ParseJUnit parses JUnit XML content
func ParseJUnit(data []byte) (*JUnitProvider, error) {
	var suites junit.Testsuites
	if isSuitesRoot(data) {
		if err := xml.Unmarshal(data, &suites); err != nil {
			return nil, errors.Wrap(err, "parsing junit testsuites")
		}
	} else {
		var suite junit.Testsuite
		if err := xml.Unmarshal(data, &suite); err != nil {
			return nil, errors.Wrap(err, "parsing junit testsuite")
		}
		suites.Suites = []junit.Testsuite{suite}
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, suite := range suites.Suites {
		for _, tc := range suite.Testcases {
			if tc.Skipped != nil {
				continue
			}
			seconds, err := parseSeconds(tc.Time)
			if err != nil {
				log.WithError(err).WithField("test", tc.Name).Warn("ignoring unparsable test time")
				continue
			}
			id := testID(tc.Classname, tc.Name)
			sums[id] += seconds
			counts[id]++
		}
	}

	durations := make(map[string]float64, len(sums))
	for id, sum := range sums {
		durations[id] = sum / float64(counts[id])
	}
	return &JUnitProvider{durations: durations}, nil
}

// Duration implements Provider
func (p *JUnitProvider) Duration(id string) (float64, bool) {
	d, ok := p.durations[id]
	return d, ok
}

// Len returns the number of tests with a known duration
func (p *JUnitProvider) Len() int {
	return len(p.durations)
}

func testID(classname, name string) string {
	if classname == "" {
		return name
	}
	return classname + "#" + name
}

func parseSeconds(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func isSuitesRoot(data []byte) bool {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := decoder.Token()
		if err != nil {
			return false
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local == "testsuites"
		}
	}
}
