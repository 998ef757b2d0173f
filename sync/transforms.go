package sync

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/biter777/countries"
	"github.com/tidwall/gjson"
	"github.com/ttacon/libphonenumber"
)

func init() {

	gjson.AddModifier("countryName", func(json, arg string) string {
		s := gjson.Parse(json).String()
		c := countries.ByName(s) // will match on Alpha-2 / Alpha-3 / Name
		if countries.Unknown == c {
			return ""
		}
		return fmt.Sprintf(`"%s"`, c.String()) // returns Country Name
	})

	gjson.AddModifier("phone", func(json, arg string) string {
		countryCode := arg
		number := gjson.Parse(json).String()
		// if present, remove extra " from number
		number = strings.Trim(number, `"`)
		// if default country code is present, strip it from the number
		if strings.HasPrefix(number, fmt.Sprintf("+%s", countryCode)) {
			number = strings.TrimPrefix(number, fmt.Sprintf("+%s", countryCode))
		} else { // otherwise try and parse the number using libphonenumber
			i, err := strconv.Atoi(countryCode)
			if err == nil {
				var num *libphonenumber.PhoneNumber
				num, err = libphonenumber.Parse(number, libphonenumber.GetRegionCodeForCountryCode(i))
				if err == nil {
					countryCode = fmt.Sprintf("%d", num.GetCountryCode())
					number = libphonenumber.GetNationalSignificantNumber(num)
				}
			}
			if err != nil {
				countryCode = ""
			}
		}
		return fmt.Sprintf(`"+%s%s"`, countryCode, number)
	})

	// bizno strips everything but digits from a business registration number
	// so "123-45-67890" and "123 45 67890" submit as "1234567890".
	gjson.AddModifier("bizno", func(json, arg string) string {
		s := gjson.Parse(json).String()
		var b strings.Builder
		for _, r := range s {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return fmt.Sprintf(`"%s"`, b.String())
	})

	gjson.AddModifier("contains", func(json, arg string) string {
		res := gjson.Parse(json)
		if res.IsArray() {
			values := res.Array()
			for _, v := range values {
				if strings.Contains(v.String(), arg) {
					return fmt.Sprintf("%t", true)
				}
			}
			return fmt.Sprintf("%t", false)
		}
		return fmt.Sprintf("%t", strings.Contains(res.String(), arg))
	})

	gjson.AddModifier("now", func(json, arg string) string {
		return fmt.Sprintf(`"%s"`, time.Now().UTC().Format(time.RFC3339))
	})

	gjson.AddModifier("upper", func(json, arg string) string {
		res := gjson.Parse(json)
		if !res.Exists() {
			return ""
		}
		return fmt.Sprintf(`"%s"`, strings.ToUpper(res.String()))
	})

	gjson.AddModifier("lower", func(json, arg string) string {
		res := gjson.Parse(json)
		if !res.Exists() {
			return ""
		}
		return fmt.Sprintf(`"%s"`, strings.ToLower(res.String()))
	})

}
