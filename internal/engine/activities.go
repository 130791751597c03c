package engine

import (
	"fmt"
	"sort"
)

// activityQuery is the static translation of one activity id into upstream
// search terms.
type activityQuery struct {
	Category string
	Keyword  string
}

// activityQueries maps the product's activity ids to upstream category and
// keyword. At least one of the two is always set; the upstream returns
// overly broad results otherwise.
var activityQueries = map[string]activityQuery{
	"alcohol":     {Category: "bar", Keyword: "winery"},
	"coffee":      {Category: "cafe", Keyword: "coffee"},
	"hiking":      {Category: "park", Keyword: "hiking trail"},
	"mushrooms":   {Category: "park", Keyword: "forest"},
	"music":       {Keyword: "live music"},
	"beaches":     {Category: "natural_feature", Keyword: "beach"},
	"castles":     {Category: "tourist_attraction", Keyword: "castle"},
	"photography": {Category: "tourist_attraction", Keyword: "viewpoint"},
}

// Activities lists the known activity ids in stable order.
func Activities() []string {
	ids := make([]string, 0, len(activityQueries))
	for id := range activityQueries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func lookupActivity(id string) (activityQuery, error) {
	q, ok := activityQueries[id]
	if !ok {
		return activityQuery{}, fmt.Errorf("unknown activity %q", id)
	}
	return q, nil
}
