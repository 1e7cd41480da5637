package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"shardrun/internal/domain"
)

var (
	packagePattern = regexp.MustCompile(`(?m)^\s*(?:package|namespace)\s+([\w.\\]+)\s*;?`)
	classPattern   = regexp.MustCompile(`(?m)^\s*(?:(?:public|internal|final|abstract|open|data)\s+)*class\s+(\w+)`)

	// JUnit 4/5 style: @Test (possibly with other annotations around it) followed by a method.
	jvmTestPattern = regexp.MustCompile(
		`(?m)((?:^\s*@\w+(?:\([^)]*\))?\s*\n)+)\s*(?:(?:public|protected|private|internal|override|open|suspend)\s+)*(?:fun|void)\s+` + "`?" + `(\w+)`,
	)

	// PHPUnit style: test* methods, or any method documented with @test.
	phpTestPattern      = regexp.MustCompile(`(?m)^\s*(?:(?:public|protected|private|static|final)\s+)*function\s+(test\w*)\s*\(`)
	phpAnnotatedPattern = regexp.MustCompile(`(?m)/\*\*((?:[^*]|\*[^/])*)\*/\s*(?:(?:public|protected|private|static|final)\s+)*function\s+(\w+)\s*\(`)

	skipAnnotations = []string{"@Ignore", "@Disabled", "@Suppress", "@skip", "@Skip"}
)

// Parser extracts test cases from test source files
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// FindTestCases returns the test cases declared in a source file, in declaration order.
// Ids have the form <package>.<Class>#<method>.
func (p *Parser) FindTestCases(filePath string) ([]domain.TestCase, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filePath)
	}
	source := string(content)

	className := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	if m := classPattern.FindStringSubmatch(source); m != nil {
		className = m[1]
	}
	if m := packagePattern.FindStringSubmatch(source); m != nil {
		className = strings.ReplaceAll(m[1], `\`, ".") + "." + className
	}

	if filepath.Ext(filePath) == ".php" {
		return p.findPHPTestCases(source, className), nil
	}
	return p.findJVMTestCases(source, className), nil
}

func (p *Parser) findJVMTestCases(source, className string) []domain.TestCase {
	var cases []domain.TestCase
	seen := make(map[string]bool)
	for _, match := range jvmTestPattern.FindAllStringSubmatch(source, -1) {
		annotations, method := match[1], match[2]
		if !hasAnnotation(annotations, "@Test") || seen[method] {
			continue
		}
		seen[method] = true
		cases = append(cases, domain.TestCase{
			ID:      className + "#" + method,
			Ignored: hasSkipAnnotation(annotations),
		})
	}
	return cases
}

func (p *Parser) findPHPTestCases(source, className string) []domain.TestCase {
	type found struct {
		offset  int
		method  string
		ignored bool
	}
	byMethod := make(map[string]*found)
	var order []*found

	add := func(offset int, method string, ignored bool) {
		if f, ok := byMethod[method]; ok {
			f.ignored = f.ignored || ignored
			return
		}
		f := &found{offset: offset, method: method, ignored: ignored}
		byMethod[method] = f
		order = append(order, f)
	}

	for _, loc := range phpAnnotatedPattern.FindAllStringSubmatchIndex(source, -1) {
		doc := source[loc[2]:loc[3]]
		method := source[loc[4]:loc[5]]
		if strings.Contains(doc, "@test") || strings.HasPrefix(method, "test") {
			add(loc[4], method, hasSkipAnnotation(doc))
		}
	}
	for _, loc := range phpTestPattern.FindAllStringSubmatchIndex(source, -1) {
		add(loc[2], source[loc[2]:loc[3]], false)
	}

	// Declaration order, not match order: the two patterns overlap.
	sort.SliceStable(order, func(i, j int) bool { return order[i].offset < order[j].offset })

	cases := make([]domain.TestCase, 0, len(order))
	for _, f := range order {
		cases = append(cases, domain.TestCase{ID: className + "#" + f.method, Ignored: f.ignored})
	}
	return cases
}

func hasAnnotation(block, annotation string) bool {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == annotation || strings.HasPrefix(line, annotation+"(") {
			return true
		}
	}
	return false
}

func hasSkipAnnotation(block string) bool {
	for _, a := range skipAnnotations {
		if strings.Contains(block, a) {
			return true
		}
	}
	return false
}
