package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"quiz-session-service/internal/domain"
)

// FileName is the retrieval handle of a session's results file.
func FileName(quizID, sessionID int) string {
	return fmt.Sprintf("quiz_%d_session_%d.csv", quizID, sessionID)
}

// RenderCSV writes the header and one row per player. Every data row ends
// with an empty field, which keeps the trailing comma older consumers expect.
func RenderCSV(numQuestions int, rows []domain.PlayerResults) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, 1+2*numQuestions)
	header = append(header, "Player")
	for i := 1; i <= numQuestions; i++ {
		header = append(header, fmt.Sprintf("question%dscore", i), fmt.Sprintf("question%drank", i))
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, row := range rows {
		record := make([]string, 0, 2+2*len(row.Questions))
		record = append(record, row.PlayerName)
		for _, cell := range row.Questions {
			record = append(record, strconv.Itoa(cell.Score), strconv.Itoa(cell.Rank))
		}
		record = append(record, "")
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
