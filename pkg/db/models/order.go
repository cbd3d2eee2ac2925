package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
)

// Order is the snapshot the deduction engine works against. Order lifecycle
// is owned by the ordering system; this service only reads the items and
// flips the status from PENDING to CONFIRMED when stock has been deducted.
type Order struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey;default:(gen_random_uuid())"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null;default:'PENDING'"`
	Note      *string           `gorm:"column:note;type:text"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type OrderItem struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:(gen_random_uuid())"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:ix_order_items_order"`
	DishID   uuid.UUID `gorm:"column:dish_id;type:uuid;not null"`
	Quantity int       `gorm:"column:quantity;not null"`

	Dish *Dish `gorm:"foreignKey:DishID"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
