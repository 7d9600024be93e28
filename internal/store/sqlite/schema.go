package sqlite

const schemaSQL = `
CREATE TABLE IF NOT EXISTS patients (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT,
  language TEXT,
  condition TEXT,
  group_id TEXT,
  schedule_hours TEXT,
  metadata TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS interactions (
  id TEXT PRIMARY KEY,
  patient_id TEXT NOT NULL,
  type TEXT NOT NULL,
  content TEXT,
  call_id TEXT,
  schedule_slot TEXT,
  timestamp TEXT NOT NULL,
  FOREIGN KEY(patient_id) REFERENCES patients(id)
);

CREATE INDEX IF NOT EXISTS idx_interactions_patient ON interactions(patient_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_interactions_slot ON interactions(patient_id, schedule_slot);

CREATE TABLE IF NOT EXISTS alerts (
  id TEXT PRIMARY KEY,
  patient_id TEXT NOT NULL,
  priority TEXT NOT NULL,
  "trigger" TEXT,
  brief TEXT,
  status TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  FOREIGN KEY(patient_id) REFERENCES patients(id)
);

CREATE INDEX IF NOT EXISTS idx_alerts_patient_status ON alerts(patient_id, status);
`
