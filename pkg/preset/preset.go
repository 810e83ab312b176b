// Package preset loads named tuning profiles for arq.ControlBlock from
// an INI file, the way the teacher's pkg/od parses a CANopen Electronic
// Data Sheet: one section per named entity, typed fields read off each
// section with gopkg.in/ini.v1.
package preset

import (
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/arqnet/arq"
)

// Profile is one named tuning profile, directly mirroring the
// parameters of arq.ControlBlock.Nodelay/WndSize/SetMTU.
type Profile struct {
	Name string

	Nodelay  int
	Interval int
	Resend   int
	NoCwnd   bool

	SndWnd int
	RcvWnd int
	MTU    int

	Stream bool
}

// Apply configures cb according to the profile.
func (p Profile) Apply(cb *arq.ControlBlock) error {
	cb.Nodelay(p.Nodelay, p.Interval, p.Resend, p.NoCwnd)
	cb.WndSize(p.SndWnd, p.RcvWnd)
	if p.MTU > 0 {
		if err := cb.SetMTU(p.MTU); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	if p.Stream {
		cb.SetStream(true)
	}
	return nil
}

// Builtin profiles, matching the reference implementation's named
// configurations.
var (
	Normal = Profile{Name: "normal", Nodelay: 0, Interval: 40, Resend: 0, NoCwnd: false, SndWnd: 32, RcvWnd: 32}
	Fast   = Profile{Name: "fast", Nodelay: 1, Interval: 30, Resend: 2, NoCwnd: false, SndWnd: 32, RcvWnd: 32}
	Fast2  = Profile{Name: "fast2", Nodelay: 1, Interval: 20, Resend: 2, NoCwnd: true, SndWnd: 64, RcvWnd: 64}
	Fastest = Profile{Name: "fastest", Nodelay: 1, Interval: 20, Resend: 2, NoCwnd: true, SndWnd: 128, RcvWnd: 128}
)

// Builtins returns the four reference profiles keyed by name.
func Builtins() map[string]Profile {
	return map[string]Profile{
		Normal.Name:  Normal,
		Fast.Name:    Fast,
		Fast2.Name:   Fast2,
		Fastest.Name: Fastest,
	}
}

// Load parses an INI document (path, []byte, or io.Reader, per
// ini.Load's accepted source types) into a set of named profiles, one
// per section. Recognized keys: nodelay, interval, resend, nocwnd,
// sndwnd, rcvwnd, mtu, stream. Missing keys default to Normal's values.
func Load(source any) (map[string]Profile, error) {
	f, err := ini.Load(source)
	if err != nil {
		return nil, fmt.Errorf("preset: %w", err)
	}

	profiles := make(map[string]Profile)
	for _, section := range f.Sections() {
		name := section.Name()
		if name == ini.DefaultSection && len(section.Keys()) == 0 {
			continue
		}
		p := Normal
		p.Name = name

		if k := section.Key("nodelay"); k.Value() != "" {
			p.Nodelay, err = k.Int()
			if err != nil {
				return nil, fmt.Errorf("preset %q: nodelay: %w", name, err)
			}
		}
		if k := section.Key("interval"); k.Value() != "" {
			p.Interval, err = k.Int()
			if err != nil {
				return nil, fmt.Errorf("preset %q: interval: %w", name, err)
			}
		}
		if k := section.Key("resend"); k.Value() != "" {
			p.Resend, err = k.Int()
			if err != nil {
				return nil, fmt.Errorf("preset %q: resend: %w", name, err)
			}
		}
		if k := section.Key("nocwnd"); k.Value() != "" {
			p.NoCwnd, err = k.Bool()
			if err != nil {
				return nil, fmt.Errorf("preset %q: nocwnd: %w", name, err)
			}
		}
		if k := section.Key("sndwnd"); k.Value() != "" {
			p.SndWnd, err = k.Int()
			if err != nil {
				return nil, fmt.Errorf("preset %q: sndwnd: %w", name, err)
			}
		}
		if k := section.Key("rcvwnd"); k.Value() != "" {
			p.RcvWnd, err = k.Int()
			if err != nil {
				return nil, fmt.Errorf("preset %q: rcvwnd: %w", name, err)
			}
		}
		if k := section.Key("mtu"); k.Value() != "" {
			p.MTU, err = k.Int()
			if err != nil {
				return nil, fmt.Errorf("preset %q: mtu: %w", name, err)
			}
		}
		if k := section.Key("stream"); k.Value() != "" {
			p.Stream, err = k.Bool()
			if err != nil {
				return nil, fmt.Errorf("preset %q: stream: %w", name, err)
			}
		}
		profiles[name] = p
	}
	return profiles, nil
}
