package layout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Well-known actions and categories.
const (
	ActionMain       = "android.intent.action.MAIN"
	ActionView       = "android.intent.action.VIEW"
	CategoryLauncher = "android.intent.category.LAUNCHER"
)

const (
	intentPrefix   = "#Intent;"
	intentSuffix   = "end"
	selectorMarker = "SEL"
)

// Intent parse errors.
var (
	ErrEmptyIntent     = errors.New("empty launch target")
	ErrMalformedIntent = errors.New("malformed launch target")
)

// Intent is a parsed launch target of the form
//
//	[data]#Intent;scheme=..;action=...;category=...;launchFlags=0x..;package=...;component=pkg/.Cls;sourceBounds=..;S.key=v;[SEL;...;]end
//
// A string without the #Intent segment is a bare data reference. Keys
// after SEL describe the selector intent.
type Intent struct {
	Data         string
	Scheme       string
	Action       string
	Categories   []string
	Type         string
	Flags        int
	Package      string
	Component    string
	SourceBounds string

	// Extras keep their encoded form ("S.key=value") in input order.
	Extras []string

	Selector *Intent
}

// ParseIntent decodes a launch target string.
func ParseIntent(s string) (Intent, error) {
	if strings.TrimSpace(s) == "" {
		return Intent{}, ErrEmptyIntent
	}

	i := strings.Index(s, intentPrefix)
	if i < 0 {
		return Intent{Action: ActionView, Data: s}, nil
	}

	in := Intent{Data: s[:i]}
	cur := &in
	body := s[i+len(intentPrefix):]
	parts := strings.Split(body, ";")
	terminated := false
	for n, part := range parts {
		if part == intentSuffix {
			if n != len(parts)-1 && !(n == len(parts)-2 && parts[n+1] == "") {
				return Intent{}, fmt.Errorf("%w: trailing data after end", ErrMalformedIntent)
			}
			terminated = true
			break
		}
		if part == selectorMarker {
			if in.Selector != nil {
				return Intent{}, fmt.Errorf("%w: repeated %s", ErrMalformedIntent, selectorMarker)
			}
			in.Selector = &Intent{}
			cur = in.Selector
			continue
		}
		if err := cur.set(part); err != nil {
			return Intent{}, err
		}
	}
	if !terminated {
		return Intent{}, fmt.Errorf("%w: missing end", ErrMalformedIntent)
	}
	return in, nil
}

func (in *Intent) set(part string) error {
	key, value, ok := strings.Cut(part, "=")
	if !ok {
		return fmt.Errorf("%w: segment %q", ErrMalformedIntent, part)
	}
	switch key {
	case "scheme":
		in.Scheme = value
	case "action":
		in.Action = value
	case "category":
		in.Categories = append(in.Categories, value)
	case "type":
		in.Type = value
	case "launchFlags":
		flags, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return fmt.Errorf("%w: launchFlags %q", ErrMalformedIntent, value)
		}
		in.Flags = int(flags)
	case "package":
		in.Package = value
	case "component":
		if !strings.Contains(value, "/") {
			return fmt.Errorf("%w: component %q", ErrMalformedIntent, value)
		}
		in.Component = value
	case "sourceBounds":
		in.SourceBounds = value
	default:
		if len(key) > 2 && key[1] == '.' {
			in.Extras = append(in.Extras, part)
			return nil
		}
		return fmt.Errorf("%w: unknown key %q", ErrMalformedIntent, key)
	}
	return nil
}

// String encodes the intent. ParseIntent(in.String()) == in.
func (in Intent) String() string {
	if in.Action == ActionView && in.Data != "" && in.Component == "" && in.Package == "" &&
		len(in.Categories) == 0 && in.Type == "" && in.Flags == 0 && len(in.Extras) == 0 &&
		in.Scheme == "" && in.SourceBounds == "" && in.Selector == nil {
		return in.Data
	}

	var b strings.Builder
	b.WriteString(in.Data)
	b.WriteString(intentPrefix)
	in.writeFields(&b)
	if in.Selector != nil {
		b.WriteString(selectorMarker + ";")
		in.Selector.writeFields(&b)
	}
	b.WriteString(intentSuffix)
	return b.String()
}

func (in Intent) writeFields(b *strings.Builder) {
	if in.Scheme != "" {
		b.WriteString("scheme=" + in.Scheme + ";")
	}
	if in.Action != "" {
		b.WriteString("action=" + in.Action + ";")
	}
	for _, c := range in.Categories {
		b.WriteString("category=" + c + ";")
	}
	if in.Type != "" {
		b.WriteString("type=" + in.Type + ";")
	}
	if in.Flags != 0 {
		fmt.Fprintf(b, "launchFlags=0x%x;", in.Flags)
	}
	if in.Package != "" {
		b.WriteString("package=" + in.Package + ";")
	}
	if in.Component != "" {
		b.WriteString("component=" + in.Component + ";")
	}
	if in.SourceBounds != "" {
		b.WriteString("sourceBounds=" + in.SourceBounds + ";")
	}
	for _, e := range in.Extras {
		b.WriteString(e + ";")
	}
}

// CanonicalKey returns the dedup key: the encoded intent with package and
// launch flags cleared, NFC-normalized so equivalent titles and data
// strings compare equal.
func (in Intent) CanonicalKey() string {
	in.Package = ""
	in.Flags = 0
	return norm.NFC.String(in.String())
}

// ComponentPackage returns the package half of Component.
func (in Intent) ComponentPackage() string {
	pkg, _, _ := strings.Cut(in.Component, "/")
	return pkg
}

// ComponentClass returns the fully qualified class half of Component.
func (in Intent) ComponentClass() string {
	pkg, cls, ok := strings.Cut(in.Component, "/")
	if !ok {
		return ""
	}
	if strings.HasPrefix(cls, ".") {
		return pkg + cls
	}
	return cls
}

// IsLauncherAppTarget reports whether the intent is exactly the shape a
// launcher uses to start an application's main activity.
func (in Intent) IsLauncherAppTarget() bool {
	if in.Action != ActionMain || in.Component == "" {
		return false
	}
	if len(in.Categories) != 1 || in.Categories[0] != CategoryLauncher {
		return false
	}
	return in.Data == "" && len(in.Extras) == 0 && in.Selector == nil
}

// AppIntent builds the launcher intent for a component "pkg/.Cls".
func AppIntent(component string) Intent {
	return Intent{
		Action:     ActionMain,
		Categories: []string{CategoryLauncher},
		Flags:      0x10200000,
		Component:  component,
	}
}
