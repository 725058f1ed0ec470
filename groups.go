package lingomark

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// OtherHost is the group for records whose source URL has no usable host.
const OtherHost = "other"

// HostOf extracts the lowercased hostname from a raw URL. Unparsable or
// hostless URLs map to OtherHost.
func HostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return OtherHost
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return OtherHost
	}
	return strings.ToLower(u.Hostname())
}

// GroupByHost partitions records by the host of their source URL. Groups
// are ordered by their most recent record, newest group first; records
// within a group are newest first.
func GroupByHost(recs []Record) []SiteGroup {
	index := make(map[string]int)
	var groups []SiteGroup

	for _, rec := range recs {
		host := HostOf(rec.URL)
		i, ok := index[host]
		if !ok {
			i = len(groups)
			index[host] = i
			groups = append(groups, SiteGroup{Host: host})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}

	for i := range groups {
		recs := groups[i].Records
		sort.SliceStable(recs, func(a, b int) bool {
			return recs[a].Date.After(recs[b].Date)
		})
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return newestDate(groups[a]).After(newestDate(groups[b]))
	})

	return groups
}

// FilterByHost returns the records whose source URL has the given host.
// An empty host matches everything.
func FilterByHost(recs []Record, host string) []Record {
	if host == "" {
		return recs
	}

	host = strings.ToLower(host)
	var out []Record
	for _, rec := range recs {
		if HostOf(rec.URL) == host {
			out = append(out, rec)
		}
	}
	return out
}

// newestDate returns the date of a group's most recent record. Records are
// already sorted newest first when this is called.
func newestDate(g SiteGroup) time.Time {
	if len(g.Records) == 0 {
		return time.Time{}
	}
	return g.Records[0].Date
}
