package tree

const room = "room-acme"

func folder(id, name string, parent string) Folder {
	f := Folder{ID: Persisted(id), Name: name, DataRoomID: room}
	if parent != "" {
		f.ParentID = Persisted(parent).Ptr()
	}
	return f
}

func file(id, name string, parent string) File {
	f := File{ID: Persisted(id), Name: name, DataRoomID: room, MimeType: "application/pdf"}
	if parent != "" {
		f.FolderID = Persisted(parent).Ptr()
	}
	return f
}

// acme is Acme/Reports/2024/Q1.pdf plus a sibling branch
func acme() ([]Folder, []File) {
	folders := []Folder{
		folder("reports", "Reports", ""),
		folder("2024", "2024", "reports"),
		folder("2023", "2023", "reports"),
		folder("legal", "Legal", ""),
	}
	files := []File{file("q1", "Q1.pdf", "2024")}
	return folders, files
}
