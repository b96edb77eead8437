package paypal

import (
	"net/http"
	"strings"

	"github.com/smallbiznis/formpay/internal/provider/domain"
)

const (
	GenericErrorMessage       = "Cannot submit data to PayPal. If the error persists, please contact us for further assistance."
	CityRequiredMessage       = "You must provide a valid city for this country."
	PostalCodeRequiredMessage = "You must provide a valid postal code for this country."
)

// UserMessage turns a provider failure into text that can be shown to the
// payer. Unprocessable-entity errors with a known first issue get a specific
// message; anything else gets the generic one with the debug id appended.
func UserMessage(err error) string {
	if apiErr, ok := domain.AsAPIError(err); ok && apiErr.Code == http.StatusUnprocessableEntity && len(apiErr.Details) > 0 {
		switch strings.ToUpper(strings.TrimSpace(apiErr.Details[0].Issue)) {
		case "CITY_REQUIRED":
			return CityRequiredMessage
		case "POSTAL_CODE_REQUIRED":
			return PostalCodeRequiredMessage
		}
	}
	return domain.WithDebugID(GenericErrorMessage, err)
}
