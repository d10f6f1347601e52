package checkout

import "storefront-api/internal/models"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-facing toast raised by the session.
type Notification struct {
	Level   Level
	Message string
}

type messageKey int

const (
	msgEnterCode messageKey = iota
	msgDiscountApplied
	msgInvalidDiscount
	msgLoginRequired
	msgCartEmpty
	msgOrderPlaced
	msgOrderFailed
)

var messages = map[messageKey]models.Bilingual{
	msgEnterCode:       {En: "Enter a discount code", Ar: "أدخل رمز الخصم"},
	msgDiscountApplied: {En: "Discount applied successfully!", Ar: "تم تطبيق الخصم بنجاح!"},
	msgInvalidDiscount: {En: "Invalid or expired discount code.", Ar: "رمز الخصم غير صالح أو منتهي الصلاحية."},
	msgLoginRequired:   {En: "Please log in to checkout.", Ar: "يرجى تسجيل الدخول لإتمام الطلب."},
	msgCartEmpty:       {En: "Your cart is empty. Add items before checking out.", Ar: "سلة التسوق فارغة. أضف منتجات قبل إتمام الطلب."},
	msgOrderPlaced:     {En: "Order placed successfully!", Ar: "تم تقديم الطلب بنجاح!"},
	msgOrderFailed:     {En: "There was an error placing your order.", Ar: "حدث خطأ أثناء تقديم طلبك."},
}

func text(k messageKey, lang string) string {
	return messages[k].In(lang)
}
