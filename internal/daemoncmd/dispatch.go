package daemoncmd

import "fmt"

// ExecuteCommand runs one parsed Command against a Backend and returns
// its wire response.
func ExecuteCommand(cmd Command, backend Backend) Response {
	switch c := cmd.(type) {
	case *NavigateCommand:
		finalURL, _, err := backend.Navigate(c.URL)
		if err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, TextData{Text: finalURL})

	case *ClickCommand:
		if err := backend.Click(c.Selector); err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, nil)

	case *FillCommand:
		if err := backend.Fill(c.Selector, c.Value); err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, nil)

	case *HoverCommand:
		if err := backend.Hover(c.Selector); err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, nil)

	case *PressCommand:
		if err := backend.Press(c.Key, c.Selector); err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, nil)

	case *ScrollCommand:
		direction, amount := c.Direction, c.Amount
		if direction == "" {
			direction = "down"
		}
		if amount == 0 {
			amount = 600
		}
		if err := backend.Scroll(direction, amount); err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, nil)

	case *SnapshotCommand:
		text, err := backend.Outline()
		if err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, SnapshotData{Outline: text})

	case *EvaluateCommand:
		result, err := backend.Evaluate(c.Script)
		if err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, EvaluateData{Result: result})

	case *GetTextCommand:
		text, err := backend.GetText(c.Selector)
		if err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, TextData{Text: text})

	case *TitleCommand:
		title, err := backend.Title()
		if err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, TextData{Text: title})

	case *URLCommand:
		url, err := backend.URL()
		if err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, TextData{Text: url})

	case *BackCommand:
		if err := backend.Back(); err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, nil)

	case *ForwardCommand:
		if err := backend.Forward(); err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, nil)

	case *ReloadCommand:
		if err := backend.Reload(); err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, nil)

	case *CloseCommand:
		if err := backend.Close(); err != nil {
			return ErrorResponse(c.ID, err.Error())
		}
		return SuccessResponse(c.ID, nil)

	default:
		return ErrorResponse(cmd.GetID(), fmt.Sprintf("unhandled action: %s", cmd.GetAction()))
	}
}
