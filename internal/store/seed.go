package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile is the on-disk layout of identities and the targets each one crawls.
type SeedFile struct {
	Identities []SeedIdentity `yaml:"identities"`
}

type SeedIdentity struct {
	Handle  string       `yaml:"handle"`
	Secret  string       `yaml:"secret"`
	Proxy   string       `yaml:"proxy"`
	Alive   *bool        `yaml:"alive"`
	Targets []SeedTarget `yaml:"targets"`
}

type SeedTarget struct {
	Handle   string `yaml:"handle"`
	Priority int    `yaml:"priority"`
	Alive    *bool  `yaml:"alive"`
}

type SeedSummary struct {
	Identities int `json:"identities"`
	Targets    int `json:"targets"`
}

func LoadSeedFile(path string) (SeedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, err
	}
	var out SeedFile
	if err := yaml.Unmarshal(b, &out); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return out, nil
}

// ApplySeed upserts every identity and its targets. Entries are keyed by handle, so
// applying the same file twice leaves one row per handle. Alive defaults to true.
func ApplySeed(ctx context.Context, repo Repository, seed SeedFile) (SeedSummary, error) {
	var sum SeedSummary
	for _, si := range seed.Identities {
		id, err := repo.SeedIdentity(ctx, CrawlIdentity{
			Handle: strings.TrimSpace(si.Handle),
			Secret: si.Secret,
			Proxy:  strings.TrimSpace(si.Proxy),
			Alive:  aliveOrDefault(si.Alive),
		})
		if err != nil {
			return sum, fmt.Errorf("seed identity %q: %w", si.Handle, err)
		}
		sum.Identities++
		for _, st := range si.Targets {
			if _, err := repo.SeedTarget(ctx, TargetAccount{
				Handle:     strings.TrimPrefix(strings.TrimSpace(st.Handle), "@"),
				IdentityID: id,
				Priority:   st.Priority,
				Alive:      aliveOrDefault(st.Alive),
			}); err != nil {
				return sum, fmt.Errorf("seed target %q: %w", st.Handle, err)
			}
			sum.Targets++
		}
	}
	return sum, nil
}

func aliveOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
