package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/yaml.v3"

	"github.com/keshon/server-relay/pkg/cmd"
)

// DefaultTemplate is the manifest kept in the commands directory as a
// starting point for new commands. It is never loaded.
const DefaultTemplate = "example.command.yaml"

var (
	ErrInvalidUnit    = errors.New("invalid command unit")
	ErrUnknownHandler = errors.New("unknown command handler")
	ErrDuplicateName  = errors.New("duplicate command name")
)

var nameRe = regexp.MustCompile(`^[-_\p{L}\p{N}]{1,32}$`)

// LoadOptions tunes a load cycle. The zero value is usable.
type LoadOptions struct {
	// Template is the file name excluded from discovery.
	Template string
	// StrictNames makes a repeated command name fail the load instead of
	// letting the later manifest replace the earlier one.
	StrictNames bool
	// Handlers resolves manifest handler keys; nil means cmd.DefaultRegistry.
	Handlers *cmd.Registry
	// Middlewares are applied to every bound handler.
	Middlewares []cmd.Middleware
	Logger      *log.Logger
}

func (o LoadOptions) template() string {
	if o.Template == "" {
		return DefaultTemplate
	}
	return o.Template
}

func (o LoadOptions) handlers() *cmd.Registry {
	if o.Handlers == nil {
		return cmd.DefaultRegistry
	}
	return o.Handlers
}

func (o LoadOptions) logger() *log.Logger {
	if o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// unit is the on-disk shape of a command manifest.
type unit struct {
	Data         map[string]interface{} `yaml:"data"`
	Enabled      bool                   `yaml:"enabled"`
	RoleRequired string                 `yaml:"role_required"`
	Handler      string                 `yaml:"handler"`
}

// LoadDir loads the manifests in the directory at dirPath.
func LoadDir(dirPath string, opts LoadOptions) (*Registry, error) {
	clean := filepath.Clean(dirPath)
	return Load(os.DirFS(filepath.Dir(clean)), filepath.Base(clean), opts)
}

// Load scans dir in fsys and builds a fresh registry from its manifests.
// Any unreadable or malformed enabled manifest fails the whole load; no
// partial registry is returned.
func Load(fsys fs.FS, dir string, opts LoadOptions) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read commands directory %s: %w", dir, err)
	}

	logger := opts.logger()
	handlers := opts.handlers()
	template := opts.template()

	reg := NewRegistry()
	for _, e := range entries {
		if !isCandidate(e, template) {
			continue
		}
		file := path.Join(dir, e.Name())

		d, err := loadUnit(fsys, file, handlers)
		if err != nil {
			return nil, err
		}
		if d == nil {
			continue
		}
		if prev, dup := reg.Get(d.Name); dup && opts.StrictNames {
			return nil, fmt.Errorf("%s: %w %q (first defined in %s)", file, ErrDuplicateName, d.Name, prev.Source)
		}

		d.Handler = cmd.Apply(d.Handler, opts.Middlewares...)
		reg.Put(d)
		logger.Printf("[INFO] Loaded command from file: %s", file)
	}
	return reg, nil
}

func isCandidate(e fs.DirEntry, template string) bool {
	name := e.Name()
	if e.IsDir() || name == template || strings.HasPrefix(name, ".") {
		return false
	}
	ext := path.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// loadUnit parses one manifest. It returns nil, nil for a disabled unit.
func loadUnit(fsys fs.FS, file string, handlers *cmd.Registry) (*Descriptor, error) {
	raw, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	var u unit
	if err := yaml.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	if !u.Enabled {
		return nil, nil
	}

	def, err := decodeDefinition(u.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	key := u.Handler
	if key == "" {
		key = def.Name
	}
	h, ok := handlers.Get(key)
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", file, ErrUnknownHandler, key)
	}

	return &Descriptor{
		Name:         def.Name,
		Definition:   def,
		Enabled:      true,
		RoleRequired: strings.TrimSpace(u.RoleRequired),
		Handler:      h,
		Source:       file,
	}, nil
}

// decodeDefinition turns the manifest's data block into a discordgo schema.
// The block uses Discord's JSON field names, so it goes through JSON.
func decodeDefinition(data map[string]interface{}) (*discordgo.ApplicationCommand, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: missing data block", ErrInvalidUnit)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUnit, err)
	}
	var def discordgo.ApplicationCommand
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUnit, err)
	}

	if !nameRe.MatchString(def.Name) || def.Name != strings.ToLower(def.Name) {
		return nil, fmt.Errorf("%w: bad command name %q", ErrInvalidUnit, def.Name)
	}
	chatInput := def.Type == 0 || def.Type == discordgo.ChatApplicationCommand
	if chatInput && (def.Description == "" || len([]rune(def.Description)) > 100) {
		return nil, fmt.Errorf("%w: command %q needs a description of 1-100 characters", ErrInvalidUnit, def.Name)
	}
	return &def, nil
}
