package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"globetrackr/api/internal/config"
	"globetrackr/api/internal/ids"
	"globetrackr/api/internal/models"
	"globetrackr/api/internal/repository"
	"globetrackr/api/internal/security"
)

// profileFields is the allow-list for self-service updates. Any other key
// in the request body is rejected before a single field is applied.
var profileFields = map[string]struct{}{
	"name":       {},
	"email":      {},
	"phone":      {},
	"creditCard": {},
}

// adminFields additionally lets admins change role and active status.
var adminFields = map[string]struct{}{
	"name":       {},
	"email":      {},
	"phone":      {},
	"creditCard": {},
	"role":       {},
	"active":     {},
}

var passwordFields = map[string]struct{}{
	"password":        {},
	"confirmPassword": {},
	"passwordHash":    {},
}

type UserService struct {
	users  UserStore
	cipher *security.FieldCipher
	cfg    *config.AppConfig
	log    zerolog.Logger
}

func NewUserService(users UserStore, cipher *security.FieldCipher, cfg *config.AppConfig, log zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		cipher: cipher,
		cfg:    cfg,
		log:    log,
	}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	return s.users.GetByID(ctx, id)
}

type CreateUserInput struct {
	Name       string
	Email      string
	Password   string
	Role       models.UserRole
	Phone      string
	CardHolder string
	CardExpiry string
	CardNumber string
	CardCVV    string
}

// Create is the admin path for provisioning users with an explicit role.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (models.User, error) {
	input.Email = NormalizeEmail(input.Email)
	if input.Email == "" || input.Password == "" {
		return models.User{}, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	if input.Role == "" {
		input.Role = models.UserRoleUser
	}
	if !models.ValidRole(input.Role) {
		return models.User{}, fmt.Errorf("%w: unknown role %q", ErrValidation, input.Role)
	}

	passwordHash, err := security.HashPassword(input.Password, s.cfg.Security.BcryptCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         input.Role,
		Active:       true,
	}
	if input.Phone != "" {
		user.Phone = &input.Phone
	}

	user.CreditCard.CardHolder = input.CardHolder
	user.CreditCard.ExpiryDate = input.CardExpiry
	if err := s.applyCardSecrets(&user.CreditCard, input.CardNumber, input.CardCVV); err != nil {
		return models.User{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	user.PasswordHash = nil
	return user, nil
}

// UpdateProfile applies a self-service update behind the profile
// allow-list. Password changes are refused with a pointer to the
// dedicated endpoint.
func (s *UserService) UpdateProfile(ctx context.Context, id string, fields map[string]any) (models.User, error) {
	return s.update(ctx, id, fields, profileFields)
}

// UpdateUser is the admin update path; it additionally accepts role and
// active.
func (s *UserService) UpdateUser(ctx context.Context, id string, fields map[string]any) (models.User, error) {
	return s.update(ctx, id, fields, adminFields)
}

func (s *UserService) update(ctx context.Context, id string, fields map[string]any, allowed map[string]struct{}) (models.User, error) {
	for key := range fields {
		if _, ok := passwordFields[key]; ok {
			return models.User{}, fmt.Errorf("%w: this route is not for password updates, use /updateMyPassword", ErrValidation)
		}
	}

	var invalid []string
	for key := range fields {
		if _, ok := allowed[key]; !ok {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return models.User{}, fmt.Errorf("%w: invalid field(s): %s", ErrValidation, strings.Join(invalid, ", "))
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if err := s.applyFields(&user, fields); err != nil {
		return models.User{}, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) applyFields(user *models.User, fields map[string]any) error {
	for key, value := range fields {
		switch key {
		case "name":
			str, ok := value.(string)
			if !ok || str == "" {
				return fmt.Errorf("%w: name must be a non-empty string", ErrValidation)
			}
			user.Name = str
		case "email":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: email must be a string", ErrValidation)
			}
			email := NormalizeEmail(str)
			if !strings.Contains(email, "@") {
				return fmt.Errorf("%w: please provide a valid email", ErrValidation)
			}
			user.Email = email
		case "phone":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: phone must be a string", ErrValidation)
			}
			user.Phone = &str
		case "role":
			str, ok := value.(string)
			if !ok || !models.ValidRole(models.UserRole(str)) {
				return fmt.Errorf("%w: unknown role %q", ErrValidation, value)
			}
			user.Role = models.UserRole(str)
		case "active":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("%w: active must be a boolean", ErrValidation)
			}
			user.Active = b
		case "creditCard":
			card, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: creditCard must be an object", ErrValidation)
			}
			if err := s.applyCardUpdate(&user.CreditCard, card); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyCardUpdate applies a partial card update. Number and CVV are
// re-encrypted only when a new plaintext value is supplied; untouched
// fields keep their existing ciphertext and IV.
func (s *UserService) applyCardUpdate(card *models.CreditCard, fields map[string]any) error {
	var number, cvv string
	for key, value := range fields {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: creditCard.%s must be a string", ErrValidation, key)
		}
		switch key {
		case "cardHolder":
			card.CardHolder = str
		case "expiryDate":
			card.ExpiryDate = str
		case "cardNumber":
			number = str
		case "cvv":
			cvv = str
		default:
			return fmt.Errorf("%w: invalid field(s): creditCard.%s", ErrValidation, key)
		}
	}
	return s.applyCardSecrets(card, number, cvv)
}

func (s *UserService) applyCardSecrets(card *models.CreditCard, number string, cvv string) error {
	if number != "" {
		ciphertext, iv, err := s.cipher.Encrypt(number)
		if err != nil {
			return err
		}
		card.NumberCiphertext, card.NumberIV = ciphertext, iv
	}
	if cvv != "" {
		ciphertext, iv, err := s.cipher.Encrypt(cvv)
		if err != nil {
			return err
		}
		card.CVVCiphertext, card.CVVIV = ciphertext, iv
	}
	return nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Msg("user deleted")
	return nil
}
