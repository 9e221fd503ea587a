package actors

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Open returns the flat file for mind/db, or false if it does not exist yet.
func Open(c Config, mind, db string) (*os.File, bool) {
	path := directory(c, mind) + db + ".dat"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, false
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	return file, true
}

// Write replaces the flat file for mind/db with b. Files are private to the
// user because the wallet lives here.
func Write(c Config, mind, db string, b []byte) error {
	if err := os.MkdirAll(directory(c, mind), 0700); err != nil {
		return fmt.Errorf("could not create %s: %w", directory(c, mind), err)
	}
	f, err := os.OpenFile(directory(c, mind)+db+".dat", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err = io.Copy(f, bytes.NewReader(b)); err != nil {
		return err
	}
	return nil
}

func directory(c Config, mind string) string {
	return c.RootDir + c.FlatFileDir + mind + "/"
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}
