package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/talentloop/talentsync/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(email, password, firstName, lastName string, roles []models.UserRole) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	ListUsers() ([]models.User, error)
	GetUserByEmail(email string) (models.User, error)
	GetUserByID(userID string) (models.User, error)
	UpdateUserRoles(userID string, roles []models.UserRole) (models.User, error)
	DeleteUser(userID string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) CreateUser(email, password, firstName, lastName string, roles []models.UserRole) (models.User, error) {
	if len(roles) == 0 {
		roles = []models.UserRole{models.RoleViewer}
	}
	if !models.IsValidRoleList(roles) {
		return models.User{}, errors.New("invalid roles")
	}
	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))

	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
		IsActive:     true,
		Roles:        normalized,
	}

	query := `
		INSERT INTO sync.users (email, first_name, last_name, password_hash, is_active, roles)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err = u.db.QueryRow(query, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.IsActive, pq.Array(toStringSlice(user.Roles))).Scan(&user.ID)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (u *userRepository) AuthenticateUser(email, password string) (models.User, error) {
	var user models.User
	var roles pq.StringArray

	query := `
		SELECT id, email, first_name, last_name, password_hash, is_active, roles
		FROM sync.users
		WHERE email = $1 AND deleted_at IS NULL`
	err := u.db.QueryRow(query, email).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.IsActive,
		&roles,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, errors.New("invalid credentials")
		}
		return models.User{}, err
	}

	user.Roles = models.EnsureDefaultRole(toUserRoleSlice(roles))
	if !models.IsValidRoleList(user.Roles) {
		return models.User{}, errors.New("user has invalid roles")
	}

	if !user.IsActive {
		return models.User{}, errors.New("user is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}

	return user, nil
}

func (u *userRepository) GetUserByEmail(email string) (models.User, error) {
	return u.getUser("email = $1", email)
}

func (u *userRepository) GetUserByID(userID string) (models.User, error) {
	return u.getUser("id = $1", userID)
}

func (u *userRepository) getUser(where string, arg any) (models.User, error) {
	var user models.User
	var roles pq.StringArray

	query := `
		SELECT id, email, first_name, last_name, password_hash, is_active, roles
		FROM sync.users
		WHERE ` + where + ` AND deleted_at IS NULL`

	err := u.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.IsActive,
		&roles,
	)
	if err != nil {
		return models.User{}, err
	}

	user.Roles = models.EnsureDefaultRole(toUserRoleSlice(roles))
	if !models.IsValidRoleList(user.Roles) {
		return models.User{}, errors.New("user has invalid roles")
	}

	return user, nil
}

func (u *userRepository) UpdateUserRoles(userID string, roles []models.UserRole) (models.User, error) {
	if len(roles) == 0 {
		return models.User{}, errors.New("roles cannot be empty")
	}

	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))
	if !models.IsValidRoleList(normalized) {
		return models.User{}, errors.New("invalid roles")
	}

	const query = `
		UPDATE sync.users
		SET roles = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, email, first_name, last_name, password_hash, is_active, roles
	`

	var user models.User
	var updatedRoles pq.StringArray
	err := u.db.QueryRow(query, userID, pq.Array(toStringSlice(normalized))).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.IsActive,
		&updatedRoles,
	)
	if err != nil {
		return models.User{}, err
	}

	user.Roles = models.EnsureDefaultRole(toUserRoleSlice(updatedRoles))
	return user, nil
}

func (u *userRepository) DeleteUser(userID string) error {
	const query = `
		UPDATE sync.users
		SET is_active = FALSE, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := u.db.Exec(query, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (u *userRepository) ListUsers() ([]models.User, error) {
	const query = `
		SELECT id, email, first_name, last_name, is_active, roles
		FROM sync.users
		WHERE deleted_at IS NULL
		ORDER BY email`

	rows, err := u.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var roles pq.StringArray

		if err := rows.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.IsActive, &roles); err != nil {
			return nil, err
		}
		user.Roles = models.EnsureDefaultRole(toUserRoleSlice(roles))
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func toStringSlice(roles []models.UserRole) []string {
	result := make([]string, 0, len(roles))
	for _, role := range roles {
		result = append(result, string(role))
	}
	return result
}

func toUserRoleSlice(roles []string) []models.UserRole {
	result := make([]models.UserRole, 0, len(roles))
	for _, role := range roles {
		result = append(result, models.UserRole(role))
	}
	return models.NormalizeRoles(result)
}
