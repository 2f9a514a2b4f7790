package config

// ReadCredentialsFile returns the stored path of the Google OAuth client
// secret, or "" if none was set.
func ReadCredentialsFile() (string, error) {
	conf, err := ReadConfig()
	return conf.CredentialsFile, err
}

func WriteCredentialsFile(path string) error {
	return update(func(conf *Config) error {
		conf.CredentialsFile = path
		return nil
	})
}

func DeleteCredentialsFile() error {
	return WriteCredentialsFile("")
}
