package domain

import "time"

// Customer представляет клиента розничной системы.
// Workflow-слой ссылается на клиента, но никогда его не изменяет.
type Customer struct {
	ID    string
	Name  string
	Email string // Уникален в пределах системы.
	Phone string
	City  string // Может быть пустым.

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет обязательные поля клиента.
func (c *Customer) Validate() []error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if c.Email == "" {
		errs = append(errs, ErrCustomerEmailRequired)
	}

	return errs
}

// CustomerUpdate описывает частичное обновление клиента.
// Нулевой указатель означает «поле не трогать».
type CustomerUpdate struct {
	Phone *string
	City  *string
}

// IsEmpty сообщает, задано ли хотя бы одно поле для обновления.
func (u CustomerUpdate) IsEmpty() bool {
	return u.Phone == nil && u.City == nil
}
