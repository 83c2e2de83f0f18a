package domain

type ContentType struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Kind        string `json:"kind"`
}

const (
	ContentTypeKindCollection = "collectionType"
	ContentTypeKindSingle     = "singleType"
)
