package discovery

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

// Discoverer finds the test cases of one test target
type Discoverer struct {
	scanner *Scanner
	parser  *Parser
}

// NewDiscoverer creates a new Discoverer
func NewDiscoverer(scanner *Scanner, parser *Parser) *Discoverer {
	return &Discoverer{scanner: scanner, parser: parser}
}

// Discover scans sourceDir and returns its test cases in discovery order.
// A test id declared twice is reported as a configuration error.
func (d *Discoverer) Discover(sourceDir string) ([]domain.TestCase, error) {
	files, err := d.scanner.Scan(sourceDir)
	if err != nil {
		return nil, err
	}

	var cases []domain.TestCase
	for _, file := range files {
		found, err := d.parser.FindTestCases(file)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			log.WithField("file", file).Debug("no test cases found")
		}
		cases = append(cases, found...)
	}
	if err := checkUnique(cases); err != nil {
		return nil, err
	}
	log.WithField("dir", sourceDir).Debugf("discovered %d test case(s) in %d file(s)", len(cases), len(files))
	return cases, nil
}

// LoadList reads test ids from a file, one per line. Blank lines are skipped and a
// leading "-" marks the test as ignored.
func LoadList(path string) ([]domain.TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening test list %s", path)
	}
	defer f.Close()

	var cases []domain.TestCase
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tc := domain.TestCase{ID: line}
		if strings.HasPrefix(line, "-") {
			tc = domain.TestCase{ID: strings.TrimSpace(line[1:]), Ignored: true}
		}
		cases = append(cases, tc)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading test list %s", path)
	}
	if err := checkUnique(cases); err != nil {
		return nil, err
	}
	return cases, nil
}

func checkUnique(cases []domain.TestCase) error {
	seen := make(map[string]bool, len(cases))
	for _, tc := range cases {
		if seen[tc.ID] {
			return errors.WithStack(&runerrors.ErrInvalidArgument{
				Name:    "testCase",
				Value:   tc.ID,
				Message: "test id is not unique",
			})
		}
		seen[tc.ID] = true
	}
	return nil
}
