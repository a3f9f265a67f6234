package core

import (
	"strings"

	"golang.org/x/text/cases"
)

// gstStateCodes maps the two-digit GST state code (also the first two
// characters of every GSTIN) to the state or union territory name.
var gstStateCodes = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"26": "Dadra and Nagar Haveli and Daman and Diu",
	"27": "Maharashtra",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
	"97": "Other Territory",
}

// StateFromGSTIN derives the registered state from a GSTIN's two-digit prefix.
func StateFromGSTIN(gstin string) (string, bool) {
	gstin = strings.TrimSpace(gstin)
	if len(gstin) < 2 {
		return "", false
	}
	name, ok := gstStateCodes[gstin[:2]]
	return name, ok
}

// normalizeState returns the comparison key for a state: GST codes become
// names, then the value is trimmed and case-folded.
func normalizeState(state string) string {
	state = strings.TrimSpace(state)
	if name, ok := gstStateCodes[state]; ok {
		state = name
	}
	return cases.Fold().String(state)
}

// SameState reports whether two jurisdiction strings name the same state.
func SameState(a, b string) bool {
	return normalizeState(a) == normalizeState(b)
}
