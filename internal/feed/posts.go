package feed

import "fmt"

// Post is one simulated social-media item. JSON field names are the wire
// contract for the feed_item payload.
type Post struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	User       string `json:"user"`
	DisasterID string `json:"disasterId"`
}

// samplePool is the rotating set of canned posts standing in for a real
// social-media ingest.
var samplePool = []struct {
	text string
	user string
}{
	{"#floodrelief Need food in NYC", "citizen1"},
	{"Heavy rain in downtown area", "volunteer77"},
	{"#earthquake just hit downtown LA — buildings shaking!", "quakeWatcher"},
	{"Power outages reported in NYC due to the storm. #floodrelief", "citizenNYC"},
	{"Shelter on 5th street is at capacity, redirect to the armory", "reliefWorker3"},
	{"Road closure on I-10 westbound, emergency vehicles only", "trafficBot"},
}

// samplePosts returns up to n posts tagged with their owning disaster.
func samplePosts(disasterID string, n int) []Post {
	if n <= 0 || n > len(samplePool) {
		n = len(samplePool)
	}
	posts := make([]Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, Post{
			ID:         fmt.Sprintf("post-%d", i+1),
			Text:       samplePool[i].text,
			User:       samplePool[i].user,
			DisasterID: disasterID,
		})
	}
	return posts
}
