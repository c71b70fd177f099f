package domain

import "time"

// Product представляет товар каталога.
type Product struct {
	ID   string
	SKU  string // Уникален в пределах каталога.
	Name string
	// PriceMinor — текущая цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// Stock — доступный остаток; изменяется только через WorkflowStore
	// при создании и отмене заказов и никогда не уходит в минус.
	Stock    int32
	Category string // Может быть пустым.

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет обязательные поля товара.
func (p *Product) Validate() []error {
	var errs []error

	if p.SKU == "" {
		errs = append(errs, ErrProductSKURequired)
	}
	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}

// ProductUpdate описывает частичное обновление товара.
// Остаток сюда намеренно не входит: stock меняет только workflow заказов.
type ProductUpdate struct {
	Name       *string
	PriceMinor *int64
	Category   *string
}

// IsEmpty сообщает, задано ли хотя бы одно поле для обновления.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.PriceMinor == nil && u.Category == nil
}
