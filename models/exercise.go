// models/exercise.go - Exercise metadata (owned by the exercise bank, read here for display)
package models

import "time"

type Exercise struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Type       string     `json:"type" gorm:"not null;size:30"` // multiple_choice, listening, fill_blank, ...
	Title      string     `json:"title" gorm:"not null;size:200"`
	Difficulty Difficulty `json:"difficulty" gorm:"type:varchar(20);index"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Exercise) TableName() string {
	return "exercises"
}
