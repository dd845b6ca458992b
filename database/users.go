package database

import (
	"strings"
	"time"

	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var ErrDuplicateEmail = errors.New("email already registered")

const (
	userColumns    = "id,company_id,email,password_hash,first_name,last_name,role,created_at,updated_at"
	companyColumns = "id,name,slug,created_at,updated_at"
)

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique || serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// CreateCompanyUser registers a company together with its first user in a
// single transaction. user.PasswordHash must already be hashed.
func CreateCompanyUser(companyName string, user User) (Company, User, error) {
	now := time.Now().UTC()
	company := Company{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(companyName),
		Slug:      logger.StringToSlug(companyName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	user.ID = uuid.NewString()
	user.CompanyID = company.ID
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = "ADMIN"
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	ReadWriteMu.Lock()
	defer ReadWriteMu.Unlock()
	tx, err := DB.Beginx()
	if err != nil {
		return Company{}, User{}, errors.Wrap(err, "begin")
	}
	_, err = tx.NamedExec(`INSERT INTO companies (`+companyColumns+`) VALUES (:id,:name,:slug,:created_at,:updated_at)`, company)
	if err != nil {
		tx.Rollback()
		return Company{}, User{}, errors.Wrap(err, "insert company")
	}
	_, err = tx.NamedExec(`INSERT INTO users (`+userColumns+`) VALUES (:id,:company_id,:email,:password_hash,:first_name,:last_name,:role,:created_at,:updated_at)`, user)
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return Company{}, User{}, ErrDuplicateEmail
		}
		return Company{}, User{}, errors.Wrap(err, "insert user")
	}
	if err := tx.Commit(); err != nil {
		return Company{}, User{}, errors.Wrap(err, "commit")
	}
	return company, user, nil
}

func GetUserByEmail(email string) (User, error) {
	return getRow[User]("users", userColumns, Query{Where: "email = ?", WhereArgs: []interface{}{strings.TrimSpace(email)}})
}

func GetUser(id string) (User, error) {
	return getRow[User]("users", userColumns, Query{Where: "id = ?", WhereArgs: []interface{}{id}})
}

func GetCompany(id string) (Company, error) {
	return getRow[Company]("companies", companyColumns, Query{Where: "id = ?", WhereArgs: []interface{}{id}})
}
