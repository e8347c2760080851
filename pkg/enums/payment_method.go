package enums

// PaymentMethod labels how the shopper intends to pay. No processor is attached.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
	PaymentMethodApplePay   PaymentMethod = "apple_pay"
	PaymentMethodGooglePay  PaymentMethod = "google_pay"
)

var paymentMethods = set[PaymentMethod]{
	PaymentMethodCreditCard,
	PaymentMethodPayPal,
	PaymentMethodApplePay,
	PaymentMethodGooglePay,
}

func (m PaymentMethod) String() string { return string(m) }

func (m PaymentMethod) IsValid() bool { return paymentMethods.has(m) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse(value, "payment method")
}
