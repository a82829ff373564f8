package policy

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/kaleidos/themestore/internal/registry"
)

//go:embed default.cue
var defaultCUE []byte

//go:embed schema.cue
var schemaCUE []byte

// Error codes for policy loading failures.
const (
	ErrCodeRead    = "POLICY_READ"
	ErrCodeCompile = "POLICY_COMPILE"
	ErrCodeInvalid = "POLICY_INVALID"
)

// LoadError is a policy loading failure with a stable code.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// rawPolicy mirrors the CUE document shape for decoding.
type rawPolicy struct {
	DefaultPackage     string              `json:"defaultPackage"`
	Components         map[string]string   `json:"components"`
	PreviewKeys        map[string][]string `json:"previewKeys"`
	ExtraPreviewKeys   []string            `json:"extraPreviewKeys"`
	Reappliable        []string            `json:"reappliable"`
	NoDefaultSelection []string            `json:"noDefaultSelection"`
}

// Default returns the embedded default policy. The embedded document is
// validated at build time by its own tests; a failure here is a
// programming error, so Default panics rather than returning an error.
func Default() *Policy {
	p, err := load(nil, "")
	if err != nil {
		panic(fmt.Sprintf("embedded policy invalid: %v", err))
	}
	return p
}

// Load reads a policy file, validates it against the schema, and
// returns it decoded over the embedded default. Scalar and list fields
// present in the file replace the default value; map fields merge
// key-wise. Fields absent from the file keep their default values.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("reading policy file: %v", err)}
	}
	return load(data, path)
}

func load(overlay []byte, filename string) (*Policy, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeCompile, Message: fmt.Sprintf("compiling schema: %v", err)}
	}

	doc := ctx.CompileBytes(defaultCUE, cue.Filename("default.cue"))
	if err := doc.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeCompile, Message: fmt.Sprintf("compiling default policy: %v", err)}
	}

	v := schema.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("validating default policy: %v", err)}
	}

	var raw rawPolicy
	if err := v.Decode(&raw); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("decoding default policy: %v", err)}
	}

	if overlay != nil {
		ov := ctx.CompileBytes(overlay, cue.Filename(filename))
		if err := ov.Err(); err != nil {
			return nil, &LoadError{Code: ErrCodeCompile, Message: fmt.Sprintf("compiling policy file: %v", err)}
		}
		// The overlay is usually partial, so its unification with the
		// schema is checked for type errors only, not concreteness.
		if err := schema.Unify(ov).Validate(); err != nil {
			return nil, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("validating policy file: %v", err)}
		}
		if err := ov.Decode(&raw); err != nil {
			return nil, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("decoding policy file: %v", err)}
		}
	}

	return raw.build()
}

// build converts the decoded document into a Policy and enforces the
// cross-field constraints the CUE schema cannot express.
func (r *rawPolicy) build() (*Policy, error) {
	if len(r.Components) == 0 {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: "policy declares no components"}
	}

	p := &Policy{
		DefaultPackage:   r.DefaultPackage,
		FolderNames:      make(map[registry.ComponentKind]string, len(r.Components)),
		PreviewKeys:      make(map[registry.ComponentKind][]string, len(r.PreviewKeys)),
		ExtraPreviewKeys: r.ExtraPreviewKeys,
	}
	for kind, folder := range r.Components {
		p.FolderNames[registry.ComponentKind(kind)] = folder
	}

	for kind, keys := range r.PreviewKeys {
		k := registry.ComponentKind(kind)
		if _, ok := p.FolderNames[k]; !ok {
			return nil, &LoadError{Code: ErrCodeInvalid,
				Message: fmt.Sprintf("previewKeys references unknown component %q", kind)}
		}
		p.PreviewKeys[k] = keys
	}

	for _, kind := range r.Reappliable {
		k := registry.ComponentKind(kind)
		if _, ok := p.FolderNames[k]; !ok {
			return nil, &LoadError{Code: ErrCodeInvalid,
				Message: fmt.Sprintf("reappliable references unknown component %q", kind)}
		}
		p.Reappliable = append(p.Reappliable, k)
	}

	for _, kind := range r.NoDefaultSelection {
		k := registry.ComponentKind(kind)
		if _, ok := p.FolderNames[k]; !ok {
			return nil, &LoadError{Code: ErrCodeInvalid,
				Message: fmt.Sprintf("noDefaultSelection references unknown component %q", kind)}
		}
		p.NoDefaultSelection = append(p.NoDefaultSelection, k)
	}

	return p, nil
}
