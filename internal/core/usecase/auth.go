package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
)

// AuthUseCase exchanges an authority-verified signature for a local user,
// creating or refreshing the account keyed by identity number.
type AuthUseCase struct {
	authority ports.SigningAuthority
	users     ports.UserDirectory
}

func NewAuthUseCase(authority ports.SigningAuthority, users ports.UserDirectory) *AuthUseCase {
	return &AuthUseCase{authority: authority, users: users}
}

func (uc *AuthUseCase) Nonce(ctx context.Context) (string, error) {
	nonce, err := uc.authority.GetNonce(ctx)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}
	return nonce, nil
}

func (uc *AuthUseCase) VerifySignature(ctx context.Context, nonce, signature string) (*domain.User, error) {
	verification, err := uc.authority.VerifyAuth(ctx, nonce, signature)
	if err != nil {
		return nil, fmt.Errorf("verify auth: %w", err)
	}

	subject := domain.ParseSubject(verification.Subject)
	iin := domain.StripIdentityPrefix(verification.UserID, "IIN")
	if iin == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "verify auth",
			errors.New("identity number missing from authority response"))
	}

	user, err := uc.users.UpsertByIIN(ctx, &domain.User{
		IIN:          iin,
		BIN:          domain.StripIdentityPrefix(verification.BusinessID, "BIN"),
		FullName:     subject.FullName(),
		Organization: subject.Organization(),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}
