package actors

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWalletFromNsecAndHex(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	require.NoError(t, err)
	nsec, err := nip19.EncodePrivateKey(sk)
	require.NoError(t, err)

	for _, secret := range []string{sk, nsec} {
		w, err := LoadWallet(Config{Nsec: secret, RootDir: t.TempDir() + "/"})
		require.NoError(t, err)
		assert.Equal(t, sk, w.PrivateKey)
		assert.Equal(t, pk, w.Account)
	}
}

func TestLoadWalletRejectsGarbage(t *testing.T) {
	_, err := LoadWallet(Config{Nsec: "nsec1notreally"})
	assert.Error(t, err)
	_, err = LoadWallet(Config{Nsec: "abcd"})
	assert.Error(t, err)
}

func TestLoadWalletGeneratesOnceAndPersists(t *testing.T) {
	c := Config{RootDir: t.TempDir() + "/", FlatFileDir: "data/"}
	first, err := LoadWallet(c)
	require.NoError(t, err)
	assert.NotEmpty(t, first.SeedWords)
	pk, err := nostr.GetPublicKey(first.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, pk, first.Account)

	second, err := LoadWallet(c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
