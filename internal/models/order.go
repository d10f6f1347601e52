package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusProcessing = "Processing"

	DefaultPaymentMethod = "Cash on Delivery"
)

type ShippingAddress struct {
	Address    string `json:"address" bson:"address"`
	City       string `json:"city" bson:"city"`
	PostalCode string `json:"postalCode" bson:"postalCode"`
	Country    string `json:"country" bson:"country"`
}

type OrderItem struct {
	Product  primitive.ObjectID  `json:"product" bson:"product"`
	Variant  *primitive.ObjectID `json:"variant,omitempty" bson:"variant,omitempty"`
	Name     Bilingual           `json:"name" bson:"name"`
	Image    string              `json:"image,omitempty" bson:"image,omitempty"`
	Price    float64             `json:"price" bson:"price"`
	Quantity int                 `json:"quantity" bson:"quantity"`
}

type Order struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	User            primitive.ObjectID `json:"user" bson:"user"`
	Items           []OrderItem        `json:"orderItems" bson:"orderItems"`
	ShippingAddress ShippingAddress    `json:"shippingAddress" bson:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod" bson:"paymentMethod"`
	Discount        *AppliedDiscount   `json:"discount,omitempty" bson:"discount,omitempty"`
	ItemsPrice      float64            `json:"itemsPrice" bson:"itemsPrice"`
	TotalPrice      float64            `json:"totalPrice" bson:"totalPrice"`
	Status          string             `json:"status" bson:"status"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// OrderLine is one cart line submitted at checkout.
type OrderLine struct {
	Product  string `json:"product"`
	Variant  string `json:"variant,omitempty"`
	Quantity int    `json:"quantity"`
}

// OrderRequest is the checkout submission body.
type OrderRequest struct {
	Items           []OrderLine      `json:"items"`
	ShippingAddress ShippingAddress  `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
	Discount        *AppliedDiscount `json:"discount"`
}
