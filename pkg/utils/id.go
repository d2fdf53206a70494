package utils

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID 生成 24 位十六进制 ID（与 Mongo ObjectID 同格式，两种存储通用）
func NewID() string { return primitive.NewObjectID().Hex() }

// IsValidID 校验 ID 格式
func IsValidID(id string) bool { return primitive.IsValidObjectID(id) }
