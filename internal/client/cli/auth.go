package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/cryptox"
)

const saltSize = 32

func (a *App) ping(ctx context.Context, _ []string) error {
	if err := a.client.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}

func (a *App) credentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter user name", a.errOut)
	if err != nil {
		return "", nil, err
	}
	if userName == "" {
		return "", nil, fmt.Errorf("%w: user name is required", ErrUsage)
	}

	password, err := getSecret("Enter password", a.errOut)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// register derives the master key from a fresh salt and sends only the
// salt and verifier to the server.
func (a *App) register(ctx context.Context, _ []string) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	salt := common.GenerateRandByteArray(saltSize)
	masterKey := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(masterKey)

	if err := a.client.Register(ctx, userName, salt, cryptox.MakeVerifier(masterKey)); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

func (a *App) login(ctx context.Context, _ []string) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	salt, err := a.client.GetSalt(ctx, userName)
	if err != nil {
		return err
	}

	masterKey := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(masterKey)

	tokens, err := a.client.Login(ctx, userName, cryptox.MakeVerifier(masterKey))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "access_token: %s\nrefresh_token: %s\n", tokens.AccessToken, tokens.RefreshToken)
	return nil
}
