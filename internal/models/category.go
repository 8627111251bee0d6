// Package models defines the core data structures for EventForge.
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Category groups topics for event generation. Categories are authored
// externally and are read-only inputs to the pipeline.
type Category struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug string             `bson:"slug" json:"slug"`
	Name string             `bson:"name" json:"name"`
}

// Topic is a single subject within a category. The category reference is
// weak: a topic carries the category id but does not own it.
type Topic struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	CategoryID primitive.ObjectID `bson:"category" json:"category_id"`
}

// IsSports reports whether a category should be fed from the sports odds
// feed instead of web search.
func (c Category) IsSports() bool {
	return c.Slug == "sports"
}

// DefaultCategories seeds a fresh installation. Mirrors the categories the
// authoring side creates by hand.
var DefaultCategories = []Category{
	{Slug: "politics", Name: "Politics"},
	{Slug: "sports", Name: "Sports"},
	{Slug: "crypto", Name: "Crypto"},
	{Slug: "finance", Name: "Finance"},
	{Slug: "tech", Name: "Tech"},
	{Slug: "culture", Name: "Culture"},
}
