// Package conf holds the configuration shared by the abpgen commands.
//
// Values come from, lowest precedence first: defaults, the .abpgen.yaml file
// in the working directory (or --config), ABPGEN_* environment variables and
// command line flags.
package conf

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mohamedhabibwork/abp-script/corpus"
	"github.com/mohamedhabibwork/abp-script/emit"
	"github.com/mohamedhabibwork/abp-script/validate"
)

// EnvPrefix prefixes the environment variables read.
const EnvPrefix = "ABPGEN"

// ConfigName is the config file looked up in the working directory.
const ConfigName = ".abpgen"

// ToolVersion is checked against the minimum version a template corpus asks
// for. main sets it.
var ToolVersion = "v0.0.0"

// Config is the merged configuration.
type Config struct {
	Namespace  string   `mapstructure:"namespace"`
	IDType     string   `mapstructure:"id_type"`
	Out        string   `mapstructure:"out"`
	Overwrite  bool     `mapstructure:"overwrite"`
	Strict     bool     `mapstructure:"strict"`
	Partial    bool     `mapstructure:"partial"`
	CreateDirs bool     `mapstructure:"create_dirs"`
	Templates  string   `mapstructure:"templates"`
	Reserved   []string `mapstructure:"reserved"`
	LogLevel   string   `mapstructure:"log_level"`
	Workers    int      `mapstructure:"workers"`
}

// flagKeys maps config keys to the flags overriding them.
var flagKeys = map[string]string{
	"namespace":   "namespace",
	"id_type":     "id-type",
	"out":         "out",
	"overwrite":   "overwrite",
	"strict":      "strict",
	"partial":     "partial",
	"create_dirs": "create-dirs",
	"templates":   "templates",
	"reserved":    "reserved",
	"log_level":   "log-level",
	"workers":     "workers",
}

// SetDefaults registers every key so that environment variables are seen by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("namespace", "")
	v.SetDefault("id_type", "Guid")
	v.SetDefault("out", ".")
	v.SetDefault("overwrite", false)
	v.SetDefault("strict", false)
	v.SetDefault("partial", false)
	v.SetDefault("create_dirs", true)
	v.SetDefault("templates", "")
	v.SetDefault("reserved", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("workers", 4)
}

// Load merges the configuration for a command. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	file := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			file = f.Value.String()
		}
	}
	if err := readConfig(v, file); err != nil {
		return nil, err
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag --%s", name)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &c, nil
}

func readConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", file)
		}
		return nil
	}
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrapf(err, "read %s.yaml", ConfigName)
		}
	}
	return nil
}

// Logger returns a standard logger writing to w filtered by the log level.
func (c *Config) Logger(w io.Writer) log.Logger {
	return log.NewFilter(log.NewStdLogger(w), log.FilterLevel(log.ParseLevel(c.LogLevel)))
}

// Loader returns the template corpus: the directory given by templates, or the
// embedded corpus.
func (c *Config) Loader() (*corpus.Loader, error) {
	l := corpus.Default()
	if c.Templates != "" {
		var err error
		if l, err = corpus.NewDirLoader(c.Templates); err != nil {
			return nil, err
		}
	}
	if err := l.Manifest().CheckToolVersion(ToolVersion); err != nil {
		return nil, err
	}
	return l, nil
}

// Validator returns a validator knowing the configured reserved words.
func (c *Config) Validator() *validate.Validator {
	return validate.New(validate.WithReserved(c.Reserved...))
}

// Emitter returns an emitter writing below the output directory of fsys.
func (c *Config) Emitter(fsys afero.Fs, logger log.Logger) *emit.Emitter {
	return emit.New(fsys, c.Out,
		emit.WithOverwrite(c.Overwrite),
		emit.WithCreateDirs(c.CreateDirs),
		emit.WithLogger(logger),
	)
}

// AddOutputFlags registers the flags controlling emission.
func AddOutputFlags(fs *pflag.FlagSet) {
	fs.StringP("out", "o", ".", "output root directory")
	fs.Bool("overwrite", false, "replace existing files")
	fs.Bool("create-dirs", true, "create missing directories")
	fs.Bool("partial", false, "write the templates that succeeded even when others failed")
}

// AddCheckFlags registers the flags controlling validation.
func AddCheckFlags(fs *pflag.FlagSet) {
	fs.Bool("strict", false, "treat warnings as errors")
	fs.StringSlice("reserved", nil, "extra identifiers generated names must not take")
}
