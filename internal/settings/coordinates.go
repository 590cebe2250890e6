package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
)

// DefaultBranch is used when no branch is configured.
const DefaultBranch = "main"

// ErrNotConfigured is returned when no usable coordinates are available.
var ErrNotConfigured = errors.New("storage backend not configured")

// Coordinates identify the repository, branch and root directory that back the drive.
type Coordinates struct {
	Token    string `json:"token" toml:"token" yaml:"token"`
	Owner    string `json:"owner" toml:"owner" yaml:"owner"`
	Repo     string `json:"repo" toml:"repo" yaml:"repo"`
	Branch   string `json:"branch" toml:"branch" yaml:"branch"`
	Dir      string `json:"dir" toml:"dir" yaml:"dir"`
	UseProxy bool   `json:"use_proxy" toml:"use_proxy" yaml:"use_proxy"`
}

// Normalized trims whitespace and slashes and fills the default branch.
func (c Coordinates) Normalized() Coordinates {
	c.Token = strings.TrimSpace(c.Token)
	c.Owner = strings.TrimSpace(c.Owner)
	c.Repo = strings.TrimSpace(c.Repo)
	c.Branch = strings.TrimSpace(c.Branch)
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	c.Dir = strings.Trim(strings.TrimSpace(c.Dir), "/")
	return c
}

// Validate reports which required fields are missing.
func (c Coordinates) Validate() error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, "token")
	}
	if c.Owner == "" {
		missing = append(missing, "owner")
	}
	if c.Repo == "" {
		missing = append(missing, "repo")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	if strings.Contains(c.Owner, "/") || strings.Contains(c.Repo, "/") {
		return fmt.Errorf("%w: owner and repo must not contain '/'", ErrNotConfigured)
	}
	return nil
}

// Target returns the repository identity used by the object store client.
func (c Coordinates) Target() objectstore.Repo {
	return objectstore.Repo{Owner: c.Owner, Name: c.Repo, Token: c.Token}
}

// Redacted returns a copy safe to show to clients.
func (c Coordinates) Redacted() Coordinates {
	if c.Token != "" {
		c.Token = redact(c.Token)
	}
	return c
}

func redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}

// Source supplies a fresh coordinates snapshot for every operation.
type Source interface {
	Coordinates() (Coordinates, error)
}

// Static is a fixed Source, used when coordinates come from the environment.
type Static Coordinates

func (s Static) Coordinates() (Coordinates, error) {
	c := Coordinates(s).Normalized()
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}
