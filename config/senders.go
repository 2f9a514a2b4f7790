package config

import (
	"errors"
	"fmt"
	"slices"
)

// errUnchanged stops update without writing.
var errUnchanged = errors.New("unchanged")

// AddSender adds sender to the allowlist. Adding a known sender is a no-op.
func AddSender(sender string) error {
	err := update(func(conf *Config) error {
		if slices.Contains(conf.Senders, sender) {
			return errUnchanged
		}

		conf.Senders = append(conf.Senders, sender)
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}

	return err
}

func ListSenders() ([]string, error) {
	conf, err := ReadConfig()
	return conf.Senders, err
}

func RemoveSender(sender string) error {
	return update(func(conf *Config) error {
		i := slices.Index(conf.Senders, sender)
		if i < 0 {
			return fmt.Errorf("could not find sender %s", sender)
		}

		conf.Senders = slices.Delete(conf.Senders, i, i+1)
		return nil
	})
}

func ResetSenders() error {
	return update(func(conf *Config) error {
		conf.Senders = []string{}
		return nil
	})
}
