package actors

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/nbd-wtf/go-nostr/nip06"
	"github.com/nbd-wtf/go-nostr/nip19"
	"nip05bot/engine/library"
)

// LoadWallet returns the signing identity of this service. The configured nsec
// wins; otherwise the wallet saved under rootDir is used, and failing that a
// new one is generated from seed words and saved.
func LoadWallet(c Config) (library.Wallet, error) {
	if c.Nsec != "" {
		return walletFromSecret(c.Nsec)
	}
	if w, ok := getWalletFromDisk(c); ok {
		return w, nil
	}
	library.LogCLI("Generating a new wallet, write down the seed words if you want to keep it", 4)
	w, err := makeNewWallet()
	if err != nil {
		return library.Wallet{}, err
	}
	fmt.Printf("\n\n~NEW WALLET~\nPublic Key: %s\nSeed Words: %s\n\n", w.Account, w.SeedWords)
	if err := persistWallet(c, w); err != nil {
		return library.Wallet{}, err
	}
	return w, nil
}

func walletFromSecret(secret string) (library.Wallet, error) {
	sk := secret
	if strings.HasPrefix(secret, "nsec") {
		prefix, value, err := nip19.Decode(secret)
		if err != nil {
			return library.Wallet{}, fmt.Errorf("could not decode nsec: %w", err)
		}
		s, ok := value.(string)
		if prefix != "nsec" || !ok {
			return library.Wallet{}, fmt.Errorf("expected an nsec, got %s", prefix)
		}
		sk = s
	}
	account, err := getPubKey(sk)
	if err != nil {
		return library.Wallet{}, err
	}
	return library.Wallet{PrivateKey: sk, Account: account}, nil
}

func makeNewWallet() (library.Wallet, error) {
	seedWords, err := nip06.GenerateSeedWords()
	if err != nil {
		return library.Wallet{}, err
	}
	seed := nip06.SeedFromWords(seedWords)
	sk, err := nip06.PrivateKeyFromSeed(seed)
	if err != nil {
		return library.Wallet{}, err
	}
	account, err := getPubKey(sk)
	if err != nil {
		return library.Wallet{}, err
	}
	return library.Wallet{
		PrivateKey: sk,
		SeedWords:  seedWords,
		Account:    account,
	}, nil
}

func getPubKey(privateKey string) (string, error) {
	keyb, err := hex.DecodeString(privateKey)
	if err != nil || len(keyb) != 32 {
		return "", fmt.Errorf("private key must be 32 bytes of hex")
	}
	_, pubkey := btcec.PrivKeyFromBytes(keyb)
	return hex.EncodeToString(schnorr.SerializePubKey(pubkey)), nil
}

func persistWallet(c Config, w library.Wallet) error {
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return Write(c, "wallet", "current", b)
}

func getWalletFromDisk(c Config) (w library.Wallet, ok bool) {
	file, ok := Open(c, "wallet", "current")
	if !ok {
		return library.Wallet{}, false
	}
	defer file.Close()
	b, err := io.ReadAll(file)
	if err != nil {
		library.LogCLI(fmt.Sprintf("Error getting wallet file: %s", err.Error()), 2)
		return library.Wallet{}, false
	}
	if err = json.Unmarshal(b, &w); err != nil {
		library.LogCLI(fmt.Sprintf("Error parsing wallet file: %s", err.Error()), 2)
		return library.Wallet{}, false
	}
	return w, len(w.PrivateKey) > 0
}
