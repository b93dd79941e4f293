package social

import "time"

type threadResponse struct {
	Thread thread `json:"thread"`
}

type thread struct {
	Type     string    `json:"$type"`
	NotFound bool      `json:"notFound"`
	Blocked  bool      `json:"blocked"`
	Post     *postView `json:"post"`
}

type postView struct {
	URI         string     `json:"uri"`
	CID         string     `json:"cid"`
	Author      profile    `json:"author"`
	Record      postRecord `json:"record"`
	Embed       *embedView `json:"embed"`
	IndexedAt   string     `json:"indexedAt"`
	LikeCount   int64      `json:"likeCount"`
	RepostCount int64      `json:"repostCount"`
	ReplyCount  int64      `json:"replyCount"`
}

type profile struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Description string `json:"description"`
}

type postRecord struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type embedView struct {
	Type     string         `json:"$type"`
	Images   []embedImage   `json:"images"`
	External *embedExternal `json:"external"`
	Media    *embedView     `json:"media"`
}

type embedImage struct {
	Thumb    string `json:"thumb"`
	Fullsize string `json:"fullsize"`
	Alt      string `json:"alt"`
}

type embedExternal struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumb       string `json:"thumb"`
}

// image returns the first picture attached to the post, following
// recordWithMedia wrappers.
func (e *embedView) image() string {
	if e == nil {
		return ""
	}
	for _, img := range e.Images {
		if img.Fullsize != "" {
			return img.Fullsize
		}
		if img.Thumb != "" {
			return img.Thumb
		}
	}
	if e.External != nil && e.External.Thumb != "" {
		return e.External.Thumb
	}
	return e.Media.image()
}

type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type oembedResponse struct {
	URL          string `json:"url"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	HTML         string `json:"html"`
	ProviderName string `json:"provider_name"`
	Type         string `json:"type"`
}
