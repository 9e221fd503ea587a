package actors

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"nip05bot/engine/library"
	"nip05bot/state/claims"
)

// Config is the immutable view of the viper settings handed to constructors.
type Config struct {
	RootDir       string
	FlatFileDir   string
	DomainName    string
	GroupingLabel string
	Relays        []string
	ProfileRelays []string
	Nsec          string
	Port          int
	ProbeTimeout  time.Duration
	LookupTimeout time.Duration
	SinceWindow   time.Duration
	DedupeTTL     time.Duration
	KeyPolicy     claims.KeyPolicy
	LogLevel      int
	DoNotPublish  bool
	Offline       bool
	Interactive   bool
	Bootstrap     bool
	Username      string
	ProfileJSON   string
}

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		library.LogCLI(err.Error(), 1)
	}
	config.SetEnvPrefix("NIP05")
	config.AutomaticEnv()
	config.SetDefault("rootDir", filepath.Join(homeDir, "nip05bot")+"/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		library.LogCLI(err.Error(), 4)
	}
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("domainName", "")
	config.SetDefault("groupingLabel", claims.DefaultGroupingLabel)
	config.SetDefault("relays", []string{"wss://nos.lol", "wss://relay.damus.io"})
	config.SetDefault("profileRelays", []string{})
	config.SetDefault("port", 8080)
	config.SetDefault("probeTimeout", "2s")
	config.SetDefault("lookupTimeout", "1s")
	config.SetDefault("sinceWindow", "10s")
	config.SetDefault("dedupeTTL", "10m")
	config.SetDefault("keyPolicy", string(claims.KeyPolicyShared))
	config.SetDefault("logLevel", 4)
	config.SetDefault("doNotPublish", false)
	config.SetDefault("offline", false)
	config.SetDefault("interactive", false)
	config.SetDefault("bootstrap", false)
	config.SetDefault("username", "")
	config.SetDefault("profileJSON", "{}")
	// nsec has no default so that WriteConfig never persists a key taken from the environment.

	// Create our working directory and config file if not exist
	initRootDir(config)
	if err := touch(config.GetString("rootDir") + "config.yaml"); err != nil {
		library.LogCLI(err.Error(), 1)
	}
	err = config.WriteConfig()
	if err != nil {
		library.LogCLI(err.Error(), 1)
	}
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.MkdirAll(conf.GetString("rootDir"), 0755)
		if err != nil {
			library.LogCLI(err, 1)
		}
	}
}

// LoadConfig reads the settings prepared by InitConfig and checks them.
func LoadConfig(conf *viper.Viper) (Config, error) {
	c := Config{
		RootDir:       conf.GetString("rootDir"),
		FlatFileDir:   conf.GetString("flatFileDir"),
		DomainName:    conf.GetString("domainName"),
		GroupingLabel: conf.GetString("groupingLabel"),
		Relays:        stringList(conf, "relays"),
		ProfileRelays: stringList(conf, "profileRelays"),
		Nsec:          conf.GetString("nsec"),
		Port:          conf.GetInt("port"),
		ProbeTimeout:  conf.GetDuration("probeTimeout"),
		LookupTimeout: conf.GetDuration("lookupTimeout"),
		SinceWindow:   conf.GetDuration("sinceWindow"),
		DedupeTTL:     conf.GetDuration("dedupeTTL"),
		KeyPolicy:     claims.KeyPolicy(conf.GetString("keyPolicy")),
		LogLevel:      conf.GetInt("logLevel"),
		DoNotPublish:  conf.GetBool("doNotPublish"),
		Offline:       conf.GetBool("offline"),
		Interactive:   conf.GetBool("interactive"),
		Bootstrap:     conf.GetBool("bootstrap"),
		Username:      conf.GetString("username"),
		ProfileJSON:   conf.GetString("profileJSON"),
	}
	switch {
	case c.DomainName == "":
		return c, fmt.Errorf("domainName must be set")
	case c.GroupingLabel == "":
		return c, fmt.Errorf("groupingLabel must be set")
	case len(c.Relays) == 0 && !c.Offline:
		return c, fmt.Errorf("at least one relay is required unless offline")
	case c.KeyPolicy != claims.KeyPolicyShared && c.KeyPolicy != claims.KeyPolicyExclusive:
		return c, fmt.Errorf("keyPolicy must be %q or %q, got %q", claims.KeyPolicyShared, claims.KeyPolicyExclusive, c.KeyPolicy)
	case c.ProbeTimeout <= 0 || c.LookupTimeout <= 0:
		return c, fmt.Errorf("probeTimeout and lookupTimeout must be positive")
	case c.Bootstrap && c.Username == "":
		return c, fmt.Errorf("bootstrap needs a username")
	}
	return c, nil
}

// Rules scopes the claim engine to this configuration. Only confirmations
// signed by issuer are trusted.
func (c Config) Rules(issuer library.Account) claims.Rules {
	return claims.Rules{
		Domain:        c.DomainName,
		GroupingLabel: c.GroupingLabel,
		Issuers:       []library.Account{issuer},
		KeyPolicy:     c.KeyPolicy,
	}
}

// stringList accepts both YAML lists and comma separated env values.
func stringList(conf *viper.Viper, key string) (list []string) {
	var raw []string
	switch v := conf.Get(key).(type) {
	case string:
		raw = strings.Split(v, ",")
	default:
		raw = conf.GetStringSlice(key)
	}
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	return
}
