package skillgraph

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedCurriculum []byte

// fileValidate checks field-level constraints on decoded curriculum files.
var fileValidate *validator.Validate

func init() {
	fileValidate = validator.New()
	fileValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// curriculumFile is the on-disk curriculum format (YAML, or JSON).
type curriculumFile struct {
	Version        string              `yaml:"version" validate:"required"`
	Nodes          []nodeFile          `yaml:"nodes" validate:"required,min=1,dive"`
	Edges          []edgeFile          `yaml:"edges" validate:"dive"`
	Misconceptions []misconceptionFile `yaml:"misconceptions" validate:"dive"`
	Cascades       []cascadeFile       `yaml:"cascades" validate:"dive"`
}

type nodeFile struct {
	Code                string  `yaml:"code" validate:"required"`
	Name                string  `yaml:"name" validate:"required"`
	Description         string  `yaml:"description"`
	Strand              string  `yaml:"strand" validate:"required"`
	Grade               int     `yaml:"grade" validate:"gte=0,lte=12"`
	Severity            int     `yaml:"severity" validate:"omitempty,gte=1,lte=5"`
	QuestionsRequired   int     `yaml:"questions_required" validate:"omitempty,gte=1"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"omitempty,gt=0,lte=1"`
	Priority            bool    `yaml:"priority"`
	ProbePrompt         string  `yaml:"probe_prompt"`
	ExpectedAnswer      string  `yaml:"expected_answer"`
}

type edgeFile struct {
	Source       string  `yaml:"source" validate:"required"`
	Target       string  `yaml:"target" validate:"required"`
	Relationship string  `yaml:"relationship" validate:"omitempty,oneof=requires strengthens enables"`
	Weight       float64 `yaml:"weight" validate:"gte=0"`
}

type misconceptionFile struct {
	ID          string `yaml:"id" validate:"required"`
	Node        string `yaml:"node" validate:"required"`
	Label       string `yaml:"label"`
	Description string `yaml:"description" validate:"required"`
	Evidence    string `yaml:"evidence"`
}

type cascadeFile struct {
	ID    string   `yaml:"id" validate:"required"`
	Name  string   `yaml:"name"`
	Nodes []string `yaml:"nodes" validate:"required,min=1"`
	Entry string   `yaml:"entry"`
}

// Parse decodes a curriculum document and loads it.
func Parse(raw []byte, opts ...Option) (*Graph, error) {
	var f curriculumFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, &GraphValidationError{Problems: []Problem{{
			Kind:    ProblemInvalidFormat,
			Subject: "document",
			Detail:  err.Error(),
		}}}
	}

	if err := fileValidate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate curriculum: %w", err)
		}
		ps := make([]Problem, 0, len(verrs))
		for _, fe := range verrs {
			ps = append(ps, Problem{
				Kind:    ProblemInvalidField,
				Subject: fe.Namespace(),
				Detail:  fmt.Sprintf("failed %q constraint (value %v)", fe.Tag(), fe.Value()),
			})
		}
		return nil, &GraphValidationError{Problems: ps}
	}

	return Load(f.toData(), opts...)
}

// LoadFile reads and loads a curriculum file.
func LoadFile(path string, opts ...Option) (*Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	g, err := Parse(raw, opts...)
	if err != nil {
		return nil, fmt.Errorf("load curriculum %s: %w", path, err)
	}
	return g, nil
}

// LoadDefault loads the curriculum embedded in the binary.
func LoadDefault(opts ...Option) (*Graph, error) {
	return Parse(seedCurriculum, opts...)
}

func (f curriculumFile) toData() Data {
	d := Data{Version: f.Version}
	for _, n := range f.Nodes {
		d.Nodes = append(d.Nodes, Node{
			Code:                n.Code,
			Name:                n.Name,
			Description:         n.Description,
			Strand:              Strand(n.Strand),
			GradeLevel:          n.Grade,
			Severity:            n.Severity,
			QuestionsRequired:   n.QuestionsRequired,
			ConfidenceThreshold: n.ConfidenceThreshold,
			Priority:            n.Priority,
			ProbePrompt:         n.ProbePrompt,
			ExpectedAnswer:      n.ExpectedAnswer,
		})
	}
	for _, e := range f.Edges {
		d.Edges = append(d.Edges, Edge{
			Source:       e.Source,
			Target:       e.Target,
			Relationship: Relationship(e.Relationship),
			Weight:       e.Weight,
		})
	}
	for _, m := range f.Misconceptions {
		d.Misconceptions = append(d.Misconceptions, Misconception{
			ID:          m.ID,
			NodeCode:    m.Node,
			Label:       m.Label,
			Description: m.Description,
			Evidence:    m.Evidence,
		})
	}
	for _, c := range f.Cascades {
		d.Cascades = append(d.Cascades, Cascade{
			ID:        c.ID,
			Name:      c.Name,
			Nodes:     c.Nodes,
			EntryNode: c.Entry,
		})
	}
	return d
}
