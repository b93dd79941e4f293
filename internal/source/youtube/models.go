package youtube

// VideoListResponse is the YouTube Data API v3 videos.list response.
type VideoListResponse struct {
	Items []Video `json:"items"`
}

type Video struct {
	ID             string         `json:"id"`
	Snippet        VideoSnippet   `json:"snippet"`
	ContentDetails ContentDetails `json:"contentDetails"`
	Statistics     Statistics     `json:"statistics"`
}

type VideoSnippet struct {
	PublishedAt          string     `json:"publishedAt"`
	ChannelID            string     `json:"channelId"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Thumbnails           Thumbnails `json:"thumbnails"`
	ChannelTitle         string     `json:"channelTitle"`
	LiveBroadcastContent string     `json:"liveBroadcastContent"`
}

type ContentDetails struct {
	Duration string `json:"duration"`
}

type Statistics struct {
	ViewCount       string `json:"viewCount"`
	LikeCount       string `json:"likeCount"`
	CommentCount    string `json:"commentCount"`
	SubscriberCount string `json:"subscriberCount"`
	VideoCount      string `json:"videoCount"`
}

// ChannelListResponse is the YouTube Data API v3 channels.list response.
type ChannelListResponse struct {
	Items []Channel `json:"items"`
}

type Channel struct {
	ID               string           `json:"id"`
	Snippet          ChannelSnippet   `json:"snippet"`
	Statistics       Statistics       `json:"statistics"`
	BrandingSettings BrandingSettings `json:"brandingSettings"`
}

type ChannelSnippet struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CustomURL   string     `json:"customUrl"`
	Thumbnails  Thumbnails `json:"thumbnails"`
}

type BrandingSettings struct {
	Channel struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"channel"`
}

type Thumbnails struct {
	Default  *Thumbnail `json:"default"`
	Medium   *Thumbnail `json:"medium"`
	High     *Thumbnail `json:"high"`
	Standard *Thumbnail `json:"standard"`
	Maxres   *Thumbnail `json:"maxres"`
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Best returns the largest available thumbnail URL, or "".
func (t Thumbnails) Best() string {
	for _, th := range []*Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}
