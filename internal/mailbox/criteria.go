package mailbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
)

// internalDateLayout is the IMAP date format used by SINCE.
const internalDateLayout = "02-Jan-2006"

// ParseCriteria translates a search criteria string into IMAP search
// criteria. Supported forms compose freely:
//
//	UNSEEN
//	FROM <address>
//	SINCE <02-Jan-2006>
//
// An empty string means UNSEEN.
func ParseCriteria(criteria string) (*imap.SearchCriteria, error) {
	search := &imap.SearchCriteria{}

	fields := strings.Fields(criteria)
	if len(fields) == 0 {
		fields = []string{"UNSEEN"}
	}

	for i := 0; i < len(fields); i++ {
		switch strings.ToUpper(fields[i]) {
		case "UNSEEN":
			search.NotFlag = append(search.NotFlag, imap.FlagSeen)
		case "SEEN":
			search.Flag = append(search.Flag, imap.FlagSeen)
		case "FROM":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("search criteria: FROM requires an address")
			}
			i++
			search.Header = append(search.Header, imap.SearchCriteriaHeaderField{
				Key:   "From",
				Value: fields[i],
			})
		case "SINCE":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("search criteria: SINCE requires a date")
			}
			i++
			since, err := time.Parse(internalDateLayout, fields[i])
			if err != nil {
				return nil, fmt.Errorf("search criteria: parsing SINCE date %q: %w", fields[i], err)
			}
			search.Since = since
		default:
			return nil, fmt.Errorf("search criteria: unsupported term %q", fields[i])
		}
	}

	return search, nil
}
