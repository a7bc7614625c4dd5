// Package tone is the local music source: bundled tones that are always available.
package tone

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/oshokin/alarm-clock/internal/audio"
)

const (
	wavExtension    = ".wav"
	cacheExpiration = 30 * time.Minute
	// cacheCleanup of zero runs no janitor goroutine; an expired buffer is
	// reloaded and replaced on its next lookup.
	cacheCleanup = 0
)

var (
	// ErrUnknownTone is returned for names that match no tone.
	ErrUnknownTone = errors.New("unknown tone")
	// ErrInvalidToneName is returned for names that could escape the sounds directory.
	ErrInvalidToneName = errors.New("invalid tone name")
)

// Library resolves tone names to PCM buffers. WAV files in the sounds
// directory shadow the synthesized built-ins of the same name.
type Library struct {
	dir   string
	cache *cache.Cache
}

// NewLibrary creates a library over dir. An empty dir serves built-ins only.
func NewLibrary(dir string) *Library {
	return &Library{
		dir:   dir,
		cache: cache.New(cacheExpiration, cacheCleanup),
	}
}

// Resolve returns the buffer of the named tone.
func (l *Library) Resolve(name string) (audio.PCM, error) {
	if err := validateName(name); err != nil {
		return audio.PCM{}, err
	}

	if cached, ok := l.cache.Get(name); ok {
		if pcm, ok := cached.(audio.PCM); ok {
			return pcm, nil
		}
	}

	pcm, err := l.load(name)
	if err != nil {
		return audio.PCM{}, err
	}

	l.cache.SetDefault(name, pcm)

	return pcm, nil
}

// Names lists every resolvable tone.
func (l *Library) Names() []string {
	names := audio.BuiltinToneNames()

	if l.dir != "" {
		entries, err := os.ReadDir(l.dir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), wavExtension) {
					continue
				}

				names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
			}
		}
	}

	slices.Sort(names)

	return slices.Compact(names)
}

func (l *Library) load(name string) (audio.PCM, error) {
	if l.dir != "" {
		pcm, err := l.loadFile(filepath.Join(l.dir, name+wavExtension))
		if err == nil {
			return pcm, nil
		}

		if !errors.Is(err, os.ErrNotExist) {
			return audio.PCM{}, err
		}
	}

	params, ok := audio.BuiltinTone(name)
	if !ok {
		return audio.PCM{}, fmt.Errorf("%w: %q", ErrUnknownTone, name)
	}

	return audio.Synthesize(params), nil
}

func (l *Library) loadFile(path string) (audio.PCM, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return audio.PCM{}, err
	}
	defer f.Close()

	pcm, err := audio.DecodeWAV(f)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("load %s: %w", path, err)
	}

	if pcm.IsEmpty() {
		return audio.PCM{}, fmt.Errorf("load %s: %w", path, audio.ErrInvalidWAV)
	}

	return pcm, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidToneName, name)
	}

	return nil
}
