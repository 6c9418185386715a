package jwttoken

import (
	"atelier/pkg/domain"
	dErrors "atelier/pkg/domain-errors"
)

// CallerValidator adapts JWTService to the caller authentication middleware.
type CallerValidator struct {
	service *JWTService
}

func NewCallerValidator(service *JWTService) *CallerValidator {
	return &CallerValidator{service: service}
}

// ValidateCaller returns the non-null caller address named by the token.
func (v *CallerValidator) ValidateCaller(tokenString string) (domain.Address, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return domain.Address{}, err
	}
	caller, err := claims.Caller()
	if err != nil || caller.IsZero() {
		return domain.Address{}, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a valid caller address")
	}
	return caller, nil
}
