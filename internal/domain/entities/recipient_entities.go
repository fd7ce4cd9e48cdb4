package entities

import "strings"

// Recipient is a business recipient address registered with Circle
type Recipient struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	AddressTag  string `json:"addressTag,omitempty"`
	Chain       string `json:"chain"`
	Currency    string `json:"currency,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	CreateDate  string `json:"createDate,omitempty"`
	UpdateDate  string `json:"updateDate,omitempty"`
}

// Matches reports whether the recipient is registered for address on chain.
// Addresses compare case-insensitively; chains must be identical.
func (r Recipient) Matches(address, chain string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Address), strings.TrimSpace(address)) &&
		r.Chain == chain
}
