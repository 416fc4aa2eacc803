package models

import "time"

// OracleCard represents one record of the Scryfall oracle_cards bulk dataset.
// Only the fields needed for name resolution are decoded.
type OracleCard struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Set       string     `json:"set"`
	SetType   string     `json:"set_type"`
	Layout    string     `json:"layout,omitempty"`
	ImageURIs *ImageURIs `json:"image_uris,omitempty"`
	CardFaces []CardFace `json:"card_faces,omitempty"`
}

// CardFace is one face of a multi-faced card
type CardFace struct {
	Name      string     `json:"name"`
	ImageURIs *ImageURIs `json:"image_uris,omitempty"`
}

// ImageURIs lists the image renditions Scryfall serves for a card or face
type ImageURIs struct {
	Small  string `json:"small,omitempty"`
	Normal string `json:"normal,omitempty"`
	Large  string `json:"large,omitempty"`
	PNG    string `json:"png,omitempty"`
}

// NormalImage returns the front face image when the card has faces with
// their own images, and the card-level image otherwise.
func (c OracleCard) NormalImage() string {
	if len(c.CardFaces) > 0 && c.CardFaces[0].ImageURIs != nil && c.CardFaces[0].ImageURIs.Normal != "" {
		return c.CardFaces[0].ImageURIs.Normal
	}
	if c.ImageURIs != nil {
		return c.ImageURIs.Normal
	}
	return ""
}

// BulkDataset is an entry of the Scryfall bulk-data index
type BulkDataset struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Name            string    `json:"name"`
	DownloadURI     string    `json:"download_uri"`
	UpdatedAt       time.Time `json:"updated_at"`
	Size            int64     `json:"size"`
	ContentEncoding string    `json:"content_encoding,omitempty"`
}

// CardMetadata is what the converter needs to know about a card name
type CardMetadata struct {
	Name     string `json:"name"`
	Printing string `json:"printing"`
	Image    string `json:"image,omitempty"`
}

// Folder represents a DragonShield portal folder
type Folder struct {
	ID      string `json:"friendlyId"`
	Name    string `json:"name"`
	Version int64  `json:"version"`
}

// FolderCard is a card entry listed inside a DragonShield folder
type FolderCard struct {
	Name      string `json:"cardName"`
	Quantity  int    `json:"quantity"`
	SetCode   string `json:"setCode,omitempty"`
	SetName   string `json:"setName,omitempty"`
	Condition string `json:"condition,omitempty"`
	Language  string `json:"language,omitempty"`
	Foil      bool   `json:"foil,omitempty"`
}

// ImportRow is one line of a Moxfield collection import file
type ImportRow struct {
	Count           int       `json:"count"`
	TradelistCount  int       `json:"tradelistCount"`
	Name            string    `json:"name"`
	Edition         string    `json:"edition"`
	Condition       string    `json:"condition"`
	Language        string    `json:"language"`
	Foil            string    `json:"foil"`
	Tags            string    `json:"tags"`
	LastModified    time.Time `json:"lastModified"`
	CollectorNumber string    `json:"collectorNumber"`
	Image           string    `json:"image,omitempty"`
}

// ImportResult is the part of the Moxfield import response we care about.
// Every field is optional since the response shape is not documented.
type ImportResult struct {
	ID            string `json:"id,omitempty"`
	Status        string `json:"status,omitempty"`
	TotalImported int    `json:"totalImported,omitempty"`
	TotalFailed   int    `json:"totalFailed,omitempty"`
}

// RunSummary describes a completed pipeline run
type RunSummary struct {
	RunID      string      `json:"runId"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
	Folder     string      `json:"folder"`
	Rows       []ImportRow `json:"rows"`
	Total      int         `json:"total"`
}

// KafkaEvent represents an event to be published to Kafka
type KafkaEvent struct {
	EventType string      `json:"eventType"`
	EventID   string      `json:"eventId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
}

// RunEvent is a Kafka event for a finished import run
type RunEvent struct {
	KafkaEvent
	Run RunSummary `json:"run"`
}

// CardEvent is a Kafka event for a single imported card
type CardEvent struct {
	KafkaEvent
	RunID string    `json:"runId"`
	Card  ImportRow `json:"card"`
}
