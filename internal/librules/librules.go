// Package librules answers which capabilities a library has and which
// library group it belongs to.
package librules

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultYAML []byte

// Rule is a capability flag of a library.
type Rule string

const (
	UseEnrichments            Rule = "USE_ENRICHMENTS"
	AuthRoot                  Rule = "AUTH_ROOT"
	AuthCommonSubjects        Rule = "AUTH_COMMON_SUBJECTS"
	AuthCommonNotes           Rule = "AUTH_COMMON_NOTES"
	AuthDBCRecords            Rule = "AUTH_DBC_RECORDS"
	AuthPublicLibCommonRecord Rule = "AUTH_PUBLIC_LIB_COMMON_RECORD"
	AuthRetRecord             Rule = "AUTH_RET_RECORD"
	AuthExportHoldings        Rule = "AUTH_EXPORT_HOLDINGS"
	AuthCreateCommonRecord    Rule = "AUTH_CREATE_COMMON_RECORD"
	AuthMetaCompass           Rule = "AUTH_METACOMPASS"
	CreateEnrichments         Rule = "CREATE_ENRICHMENTS"
)

// Group is the library group of an agency.
type Group string

const (
	GroupDBC  Group = "dbc"
	GroupFBS  Group = "fbs"
	GroupPH   Group = "ph"
	GroupSBCI Group = "sbci"
)

// IsDBC reports whether g is the DBC group.
func (g Group) IsDBC() bool { return g == GroupDBC }

// IsFBS reports whether g is the FBS group.
func (g Group) IsFBS() bool { return g == GroupFBS }

// IsPH reports whether g is the PH group.
func (g Group) IsPH() bool { return g == GroupPH }

// IsSBCI reports whether g is the SBCI group.
func (g Group) IsSBCI() bool { return g == GroupSBCI }

// Valid reports whether g is a known group.
func (g Group) Valid() bool {
	switch g {
	case GroupDBC, GroupFBS, GroupPH, GroupSBCI:
		return true
	}
	return false
}

// Library is one catalog entry.
type Library struct {
	Group Group  `yaml:"group"`
	Rules []Rule `yaml:"rules"`
}

// Catalog is a static rules catalog.
type Catalog struct {
	DefaultGroup Group              `yaml:"default_group"`
	Libraries    map[string]Library `yaml:"libraries"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return c
}

// Parse decodes and validates a catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if c.DefaultGroup == "" {
		c.DefaultGroup = GroupFBS
	}
	if !c.DefaultGroup.Valid() {
		return nil, fmt.Errorf("parse rules: unknown default group %q", c.DefaultGroup)
	}
	for agency, lib := range c.Libraries {
		if lib.Group != "" && !lib.Group.Valid() {
			return nil, fmt.Errorf("parse rules: agency %s: unknown group %q", agency, lib.Group)
		}
	}
	if c.Libraries == nil {
		c.Libraries = map[string]Library{}
	}
	return &c, nil
}

// LoadFile reads a catalog file. An empty path returns the default catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// HasCapability reports whether agency has rule.
func (c *Catalog) HasCapability(_ context.Context, agency string, rule Rule) (bool, error) {
	lib, ok := c.Libraries[agency]
	if !ok {
		return false, nil
	}
	for _, r := range lib.Rules {
		if r == rule {
			return true, nil
		}
	}
	return false, nil
}

// LibraryGroup returns the group of agency, or the default group.
func (c *Catalog) LibraryGroup(_ context.Context, agency string) (Group, error) {
	if lib, ok := c.Libraries[agency]; ok && lib.Group != "" {
		return lib.Group, nil
	}
	return c.DefaultGroup, nil
}

// AgenciesInGroup returns the listed agencies of a group, sorted.
func (c *Catalog) AgenciesInGroup(g Group) []string {
	var out []string
	for agency, lib := range c.Libraries {
		if lib.Group == g {
			out = append(out, agency)
		}
	}
	sort.Strings(out)
	return out
}

// AgencyString renders an integer agency id the way the catalog keys it.
func AgencyString(agency int) string {
	return strconv.Itoa(agency)
}
