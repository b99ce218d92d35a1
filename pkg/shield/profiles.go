package shield

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Built-in profile names.
const (
	ProfileColdMonitor     = "cold-monitor"
	ProfileEverydayMonitor = "everyday-monitor"
	ProfileBurstSync       = "burst-sync"

	// DefaultProfile is used when a caller names an unknown profile.
	DefaultProfile = ProfileEverydayMonitor
)

// Profile is a named settings preset: an override applied to DefaultSettings.
type Profile struct {
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Override    Override `json:"override,omitempty"`
}

// Settings returns the merged settings for the profile.
func (p Profile) Settings() Settings {
	return Merge(DefaultSettings(), p.Override)
}

// BuiltinProfiles returns fresh copies of the shipped profiles.
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Name:        ProfileColdMonitor,
			Title:       "Cold Monitor",
			Description: "Rarely touched wallets: small hourly budget, large batches, heavy chaff, minute-scale gaps.",
			Override: Override{
				MaxLookupsPerHour:     Ptr(30),
				BatchMin:              Ptr(4),
				BatchMax:              Ptr(8),
				ChaffPerBatchMin:      Ptr(3),
				ChaffPerBatchMax:      Ptr(5),
				IntraBatchJitterMinMs: Ptr[int64](500),
				IntraBatchJitterMaxMs: Ptr[int64](3_000),
				InterBatchJitterMinMs: Ptr[int64](60_000),
				InterBatchJitterMaxMs: Ptr[int64](240_000),
			},
		},
		{
			Name:        ProfileEverydayMonitor,
			Title:       "Everyday Monitor",
			Description: "Wallets in regular use: moderate budget and chaff, gaps of a few seconds.",
		},
		{
			Name:        ProfileBurstSync,
			Title:       "Burst Sync",
			Description: "Catching up after a long offline period: large budget, light chaff, short gaps.",
			Override: Override{
				MaxLookupsPerHour:     Ptr(360),
				BatchMin:              Ptr(2),
				BatchMax:              Ptr(10),
				ChaffPerBatchMin:      Ptr(1),
				ChaffPerBatchMax:      Ptr(2),
				InterBatchJitterMinMs: Ptr[int64](1_500),
				InterBatchJitterMaxMs: Ptr[int64](6_000),
			},
		},
	}
}

// Registry resolves profile names to settings. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	profiles    map[string]Profile
	defaultName string
}

// NewRegistry returns a registry holding the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{
		profiles:    make(map[string]Profile),
		defaultName: DefaultProfile,
	}
	for _, p := range BuiltinProfiles() {
		r.profiles[p.Name] = p
	}
	return r
}

// Register adds or replaces a profile after checking its merged settings.
func (r *Registry) Register(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("registering profile: empty name")
	}
	if err := p.Settings().Validate(); err != nil {
		return fmt.Errorf("registering profile %q: %w", p.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Name] = p
	return nil
}

// SetDefault changes the fallback profile. The name must be registered.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[name]; !ok {
		return fmt.Errorf("setting default profile: unknown profile %q", name)
	}
	r.defaultName = name
	return nil
}

// Default returns the fallback profile name.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// Lookup returns the named profile, falling back to the default for unknown
// or empty names. The returned name is the profile actually used.
func (r *Registry) Lookup(name string) Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.profiles[name]; ok {
		return p
	}
	if name != "" {
		slog.Debug("unknown profile, using default",
			slog.String("requested", name),
			slog.String("default", r.defaultName),
		)
	}
	return r.profiles[r.defaultName]
}

// Resolve returns the validated settings for name (or the default profile),
// with extra applied last.
func (r *Registry) Resolve(name string, extra ...Override) (string, Settings, error) {
	p := r.Lookup(name)

	o := p.Override
	for _, e := range extra {
		o = o.Then(e)
	}
	s := Merge(DefaultSettings(), o)
	if err := s.Validate(); err != nil {
		return p.Name, Settings{}, err
	}
	return p.Name, s, nil
}

// List returns all profiles sorted by name.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
