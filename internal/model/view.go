package model

// Profile 用户资料视图：自身信息 + 粉丝/关注列表（顺序由存储决定）
type Profile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Followers []UserRef `json:"followers"`
	Following []UserRef `json:"following"`
}

type LikeRef struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

// TweetView 推文列表项
type TweetView struct {
	ID          int64     `json:"id"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments"`
	Author      UserRef   `json:"author"`
	Likes       []LikeRef `json:"likes"`
}

// NewTweetView 由预加载了作者、点赞与图片的 Tweet 组装视图
func NewTweetView(t *Tweet) TweetView {
	v := TweetView{
		ID:          t.ID,
		Content:     t.Content,
		Attachments: make([]string, 0, len(t.Media)),
		Author:      UserRef{ID: t.Author.ID, Name: t.Author.Name},
		Likes:       make([]LikeRef, 0, len(t.Likes)),
	}
	for _, m := range t.Media {
		v.Attachments = append(v.Attachments, m.PublicPath())
	}
	for _, l := range t.Likes {
		v.Likes = append(v.Likes, LikeRef{ID: l.ID, UserID: l.UserID})
	}
	return v
}
