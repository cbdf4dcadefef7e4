package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/dropDatabas3/hellojohn-oidc/internal/util/atomicwrite"
)

// KeySet mantiene la clave de firma activa. Los KIDs retirados siguen
// publicados en el JWKS hasta que sus tokens expiran.
type KeySet struct {
	Priv ed25519.PrivateKey
	Pub  ed25519.PublicKey
	KID  string
	Alg  string // "EdDSA"

	retired map[string]ed25519.PublicKey
}

// NewKeySet arma un KeySet a partir de una privada; el KID es el thumbprint de la pública.
func NewKeySet(priv ed25519.PrivateKey) *KeySet {
	pub := priv.Public().(ed25519.PublicKey)
	return &KeySet{Priv: priv, Pub: pub, KID: thumbprint(pub), Alg: "EdDSA"}
}

// GenerateKeySet genera una clave Ed25519 efímera (dev/tests).
func GenerateKeySet() (*KeySet, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewKeySet(priv), nil
}

// LoadKeySet lee una privada PKCS#8 PEM. Con path vacío genera una efímera.
func LoadKeySet(path string) (*KeySet, error) {
	if path == "" {
		return GenerateKeySet()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jwt: read signing key: %w", err)
	}
	block, _ := pem.Decode(b)
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, errors.New("jwt: signing key is not a PKCS#8 PEM block")
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwt: parse signing key: %w", err)
	}
	priv, ok := k.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: signing key is not Ed25519")
	}
	return NewKeySet(priv), nil
}

// WritePEM persiste la privada como PKCS#8 PEM con permisos 0600.
func (k *KeySet) WritePEM(path string) error {
	der, err := x509.MarshalPKCS8PrivateKey(k.Priv)
	if err != nil {
		return err
	}
	return atomicwrite.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600)
}

// Retire publica una clave vieja sólo para verificación.
func (k *KeySet) Retire(pub ed25519.PublicKey) {
	if k.retired == nil {
		k.retired = map[string]ed25519.PublicKey{}
	}
	k.retired[thumbprint(pub)] = pub
}

// PublicKeyByKID busca entre la activa y las retiradas.
func (k *KeySet) PublicKeyByKID(kid string) (ed25519.PublicKey, error) {
	if kid == k.KID {
		return k.Pub, nil
	}
	if pub, ok := k.retired[kid]; ok {
		return pub, nil
	}
	return nil, fmt.Errorf("jwt: unknown kid %q", kid)
}

func thumbprint(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}

// ----- JWKS (serialización) -----

type jwk struct {
	Kty string `json:"kty"` // "OKP"
	Crv string `json:"crv"` // "Ed25519"
	Kid string `json:"kid"`
	Alg string `json:"alg"` // "EdDSA"
	Use string `json:"use"` // "sig"
	X   string `json:"x"`   // base64url(pub)
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// JWKSJSON devuelve el JWKS (sólo públicas, activa primero).
func (k *KeySet) JWKSJSON() []byte {
	mk := func(kid string, pub ed25519.PublicKey) jwk {
		return jwk{Kty: "OKP", Crv: "Ed25519", Kid: kid, Alg: "EdDSA", Use: "sig",
			X: base64.RawURLEncoding.EncodeToString(pub)}
	}
	j := jwks{Keys: []jwk{mk(k.KID, k.Pub)}}
	for kid, pub := range k.retired {
		j.Keys = append(j.Keys, mk(kid, pub))
	}
	b, _ := json.Marshal(j)
	return b
}
