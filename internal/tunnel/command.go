package tunnel

// SubCommand selects the daemon action.
type SubCommand string

const (
	SubStart SubCommand = "start"
	SubStop  SubCommand = "stop"
)

// DefaultSourceClient identifies this client in the --source flag.
const DefaultSourceClient = "go"

// Invocation carries everything needed to render a command line.
type Invocation struct {
	BinaryPath   string
	LogFile      string
	AccessKey    string
	SourceClient string
	Version      string
	Options      Options
}

// Source returns the value passed with --source.
func (inv Invocation) Source() string {
	client := inv.SourceClient
	if client == "" {
		client = DefaultSourceClient
	}
	version := inv.Version
	if version == "" {
		version = VersionUnknown
	}
	return client + ":" + version
}

// BuildCommand renders the full daemon command line, binary first.
// Options with a nil value are skipped.
func BuildCommand(sub SubCommand, inv Invocation) []string {
	cmd := []string{
		inv.BinaryPath,
		"-d", string(sub),
		"-logFile", inv.LogFile,
		"-k", inv.AccessKey,
		"--source", inv.Source(),
	}
	for _, f := range inv.Options.flags {
		if f.Value == nil {
			continue
		}
		cmd = append(cmd, FlagTokens(f.Key, f.Value)...)
	}
	return cmd
}

// Redact returns a copy of cmd with the access key masked for display.
func Redact(cmd []string) []string {
	out := make([]string, len(cmd))
	copy(out, cmd)
	for i := 0; i+1 < len(out); i++ {
		if out[i] == "-k" && out[i+1] != "" {
			out[i+1] = "********"
			i++
		}
	}
	return out
}
