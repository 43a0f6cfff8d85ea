// Package profile defines the token sets tokenfill knows how to fill and binds
// supplied values to them.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/torosent/tokenfill/internal/config"
	"github.com/torosent/tokenfill/internal/render"
)

// Entry names one value slot and the literal token it replaces.
type Entry struct {
	Name  string
	Token string
}

// Profile is an ordered list of entries. Positional values bind in this order.
type Profile struct {
	Name    string
	Entries []Entry
}

// ArgumentCountError reports a positional value count that does not match
// the selected profile. The template is never touched when it is returned.
type ArgumentCountError struct {
	Got  int
	Want int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("invalid number of arguments: %d", e.Got)
}

// MissingValuesError lists entries that received no value in named binding.
type MissingValuesError struct {
	Names []string
}

func (e *MissingValuesError) Error() string {
	return fmt.Sprintf("missing values: %s", strings.Join(e.Names, ", "))
}

var (
	storage = Profile{
		Name: "storage",
		Entries: []Entry{
			{Name: "project_id", Token: "##PROJECT_ID"},
			{Name: "storage_login", Token: "##STORAGE_LOGIN"},
			{Name: "storage_password", Token: "##STORAGE_PASSWORD"},
		},
	}
	mail = Profile{
		Name: "mail",
		Entries: append(append([]Entry(nil), storage.Entries...),
			Entry{Name: "email", Token: "##EMAIL"},
			Entry{Name: "password", Token: "##PASSWORD"},
		),
	}
)

// Builtins returns the predefined profiles keyed by name.
func Builtins() map[string]Profile {
	return map[string]Profile{
		storage.Name: storage.clone(),
		mail.Name:    mail.clone(),
	}
}

// Resolve finds a profile by name. Profiles declared in the config file
// replace built-ins of the same name.
func Resolve(name string, declared []config.ProfileConfig) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, pc := range declared {
		if strings.ToLower(strings.TrimSpace(pc.Name)) != key {
			continue
		}
		p := Profile{Name: key, Entries: make([]Entry, len(pc.Tokens))}
		for i, tok := range pc.Tokens {
			p.Entries[i] = Entry{Name: strings.ToLower(strings.TrimSpace(tok.Name)), Token: tok.Token}
		}
		return p, nil
	}
	if p, ok := Builtins()[key]; ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(available(declared), ", "))
}

// Tokens returns the literal tokens in profile order.
func (p Profile) Tokens() []string {
	tokens := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		tokens[i] = e.Token
	}
	return tokens
}

// Bind pairs positional values with entries in order. The count must match exactly.
func (p Profile) Bind(args []string) ([]render.Substitution, error) {
	if len(args) != len(p.Entries) {
		return nil, &ArgumentCountError{Got: len(args), Want: len(p.Entries)}
	}
	subs := make([]render.Substitution, len(p.Entries))
	for i, e := range p.Entries {
		subs[i] = render.Substitution{Token: e.Token, Value: args[i]}
	}
	return subs, nil
}

// Lookup finds a value by name.
type Lookup interface {
	Get(name string) (string, bool)
}

// BindNamed pairs entries with values looked up by entry name. Every entry
// must have a value; extra names are ignored.
func (p Profile) BindNamed(values Lookup) ([]render.Substitution, error) {
	subs := make([]render.Substitution, 0, len(p.Entries))
	var missing []string
	for _, e := range p.Entries {
		v, ok := values.Get(e.Name)
		if !ok {
			missing = append(missing, e.Name)
			continue
		}
		subs = append(subs, render.Substitution{Token: e.Token, Value: v})
	}
	if len(missing) > 0 {
		return nil, &MissingValuesError{Names: missing}
	}
	return subs, nil
}

func (p Profile) clone() Profile {
	return Profile{Name: p.Name, Entries: append([]Entry(nil), p.Entries...)}
}

func available(declared []config.ProfileConfig) []string {
	seen := map[string]struct{}{}
	for name := range Builtins() {
		seen[name] = struct{}{}
	}
	for _, pc := range declared {
		seen[strings.ToLower(strings.TrimSpace(pc.Name))] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
