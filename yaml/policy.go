// Package yaml loads the extraction policy from a YAML file.
package yaml

import (
	"bytes"
	"errors"
	"io"
	"os"
	"unicode/utf8"

	"github.com/fwojciec/metsalto"
	"gopkg.in/yaml.v3"
)

// Policy is the configurable part of article extraction.
type Policy struct {
	Hyphen             metsalto.HyphenPolicy
	ExcludedTypes      []string
	ParagraphSeparator string
}

// DefaultPolicy returns the policy used when no file is given.
func DefaultPolicy(excluded []string) *Policy {
	return &Policy{
		Hyphen:             metsalto.DefaultHyphenPolicy(),
		ExcludedTypes:      append([]string(nil), excluded...),
		ParagraphSeparator: metsalto.DefaultParagraphSeparator,
	}
}

type fileConfig struct {
	Hyphen    hyphenConfig    `yaml:"hyphen"`
	Structure structureConfig `yaml:"structure"`
	Assembly  assemblyConfig  `yaml:"assembly"`
}

type hyphenConfig struct {
	Glyphs          []string `yaml:"glyphs"`
	MinFragment     *int     `yaml:"min_fragment"`
	KeepBeforeUpper *bool    `yaml:"keep_before_upper"`
}

type structureConfig struct {
	ExcludedTypes *[]string `yaml:"excluded_types"`
}

type assemblyConfig struct {
	ParagraphSeparator *string `yaml:"paragraph_separator"`
}

// LoadPolicy reads a policy file. Settings absent from the file keep the
// values of base.
func LoadPolicy(path string, base *Policy) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EENV, err, "reading policy file")
	}
	p, err := ParsePolicy(data, base)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EINVALID, err, "policy file %s", path)
	}
	return p, nil
}

// ParsePolicy decodes a policy document on top of base. Unknown keys are
// rejected.
func ParsePolicy(data []byte, base *Policy) (*Policy, error) {
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, metsalto.WrapError(metsalto.EINVALID, err, "decoding policy")
	}

	p := *base
	p.Hyphen.Glyphs = append([]rune(nil), base.Hyphen.Glyphs...)
	p.ExcludedTypes = append([]string(nil), base.ExcludedTypes...)

	if cfg.Hyphen.Glyphs != nil {
		glyphs := make([]rune, 0, len(cfg.Hyphen.Glyphs))
		for _, g := range cfg.Hyphen.Glyphs {
			if utf8.RuneCountInString(g) != 1 {
				return nil, metsalto.Errorf(metsalto.EINVALID, "hyphen glyph %q must be a single character", g)
			}
			r, _ := utf8.DecodeRuneInString(g)
			glyphs = append(glyphs, r)
		}
		p.Hyphen.Glyphs = glyphs
	}
	if cfg.Hyphen.MinFragment != nil {
		p.Hyphen.MinFragment = *cfg.Hyphen.MinFragment
	}
	if cfg.Hyphen.KeepBeforeUpper != nil {
		p.Hyphen.KeepBeforeUpper = *cfg.Hyphen.KeepBeforeUpper
	}
	if cfg.Structure.ExcludedTypes != nil {
		if len(*cfg.Structure.ExcludedTypes) == 0 {
			return nil, metsalto.Errorf(metsalto.EINVALID, "excluded_types must not be empty")
		}
		p.ExcludedTypes = append([]string(nil), (*cfg.Structure.ExcludedTypes)...)
	}
	if cfg.Assembly.ParagraphSeparator != nil {
		p.ParagraphSeparator = *cfg.Assembly.ParagraphSeparator
	}

	if err := p.Hyphen.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
