package plan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"letterscribe/internal/pagerange"
	"letterscribe/internal/services"
)

// Group is one letter: an ordered page sequence plus its position in the plan.
type Group struct {
	// Index is the zero-based position among non-blank plan lines. Skip lists
	// refer to groups by this value.
	Index int
	// Line is the 1-based source line, kept for diagnostics.
	Line  int
	Spec  string
	Pages []int
}

// Plan is the ordered, immutable list of groups for one run.
type Plan struct {
	path   string
	groups []Group
}

// NotFoundError reports a plan file that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("group plan %s not found", e.Path)
}

// Is lets callers match against services.ErrPlanNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == services.ErrPlanNotFound
}

// LineError attaches the plan location to a malformed range.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Load reads the plan file at path.
func Load(path string) (*Plan, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("open group plan: %w", err)
	}
	defer file.Close()

	return parse(file, path)
}

// Parse builds a plan from r. Blank and whitespace-only lines are dropped and
// do not consume a group index.
func Parse(r io.Reader) (*Plan, error) {
	return parse(r, "")
}

func parse(r io.Reader, path string) (*Plan, error) {
	scanner := bufio.NewScanner(r)
	p := &Plan{path: path}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		spec := strings.TrimSpace(scanner.Text())
		if spec == "" {
			continue
		}
		pages, err := pagerange.Parse(spec)
		if err != nil {
			return nil, &LineError{Path: path, Line: lineNo, Err: err}
		}
		p.groups = append(p.groups, Group{
			Index: len(p.groups),
			Line:  lineNo,
			Spec:  spec,
			Pages: pages,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read group plan: %w", err)
	}
	return p, nil
}

// Path returns the file the plan was loaded from, or "" for in-memory plans.
func (p *Plan) Path() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Len returns the number of groups.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.groups)
}

// Group returns the group at index.
func (p *Plan) Group(index int) (Group, bool) {
	if p == nil || index < 0 || index >= len(p.groups) {
		return Group{}, false
	}
	return p.groups[index].clone(), true
}

// Groups returns a copy of every group in processing order.
func (p *Plan) Groups() []Group {
	if p == nil {
		return nil
	}
	out := make([]Group, len(p.groups))
	for i, g := range p.groups {
		out[i] = g.clone()
	}
	return out
}

// New builds a plan from already-expanded page lists. Intended for callers
// and tests that do not read a file.
func New(pages ...[]int) *Plan {
	p := &Plan{}
	for i, group := range pages {
		cp := append([]int(nil), group...)
		p.groups = append(p.groups, Group{Index: i, Line: i + 1, Spec: pagerange.Format(cp), Pages: cp})
	}
	return p
}

func (g Group) clone() Group {
	g.Pages = append([]int(nil), g.Pages...)
	return g
}
