// Package gmail is a thin client over the Gmail v1 Users service with the
// calls the attachment downloader needs: one page of messages.list, a full
// messages.get and attachments.get with base64url decoding.
//
// Every call is timed, counted as a Google API operation and wrapped in a
// client span when instrumentation is enabled.
//
// Example usage:
//
//	httpClient, err := authorizer.HTTPClient(ctx)
//	if err != nil {
//	    return err
//	}
//	client, err := gmail.NewClient(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//
//	page, err := client.ListMessages(ctx, "has:attachment", "")
//	if err != nil {
//	    return err
//	}
//	for _, id := range page.MessageIDs {
//	    msg, err := client.GetMessage(ctx, id)
//	    ...
//	    for _, a := range gmail.ListAttachments(msg) {
//	        data, err := client.GetAttachment(ctx, id, a.AttachmentID)
//	        ...
//	    }
//	}
package gmail
